package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sre-norns/ags/pkg/geom"
	"github.com/sre-norns/ags/pkg/grace"
)

type (
	GeometryInput struct {
		Input string `help:"Geometry JSON, @file to read it from a file or - for stdin" arg:"" name:"geometry"`
	}

	Classify struct{ GeometryInput }
	Validate struct{ GeometryInput }
	WKT      struct{ GeometryInput }

	GeometryCmd struct {
		Classify Classify `cmd:"" help:"Print the variant of a geometry"`
		Validate Validate `cmd:"" help:"Check that a geometry is valid"`
		WKT      WKT      `cmd:"" help:"Convert a geometry to Well Known Text" name:"wkt"`
	}
)

type geometryReport struct {
	Variant      geom.Variant      `json:"variant" yaml:"variant"`
	GeometryType geom.GeometryType `json:"geometryType,omitempty" yaml:"geometryType,omitempty"`
	Valid        bool              `json:"valid" yaml:"valid"`
}

func (in GeometryInput) read() ([]byte, error) {
	switch {
	case in.Input == "-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(in.Input, "@"):
		return os.ReadFile(strings.TrimPrefix(in.Input, "@"))
	}
	return []byte(in.Input), nil
}

func (in GeometryInput) geometry() (*geom.Geometry, error) {
	data, err := in.read()
	if err != nil {
		return nil, err
	}

	g, err := geom.FromJSON(data)
	if err != nil {
		return nil, grace.WrapError(err, "Esri JSON geometry object", abbreviate(string(data)), "pass an object with x/y, points, paths, rings, xmin or wkid keys")
	}
	return g, nil
}

func abbreviate(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 40 {
		return value[:37] + "..."
	}
	return value
}

func report(g *geom.Geometry) geometryReport {
	geometryType, _ := g.GeometryType()
	return geometryReport{
		Variant:      g.Variant(),
		GeometryType: geometryType,
		Valid:        g.IsValid(),
	}
}

func (c *Classify) Run(cfg *commandContext) error {
	g, err := c.geometry()
	if err != nil {
		return err
	}
	return cfg.OutputFormatter(report(g))
}

func (c *Validate) Run(cfg *commandContext) error {
	g, err := c.geometry()
	if err != nil {
		return err
	}

	result := report(g)
	if err := cfg.OutputFormatter(result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%s geometry is not valid", result.Variant)
	}
	return nil
}

func (c *WKT) Run(cfg *commandContext) error {
	g, err := c.geometry()
	if err != nil {
		return err
	}

	text, err := g.WKT()
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
