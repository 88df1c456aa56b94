package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sre-norns/ags/pkg/feature"
	"github.com/sre-norns/ags/pkg/grace"
	"github.com/sre-norns/ags/pkg/service"
)

type QueryCmd struct {
	URL        string   `help:"URL of a layer or a table" arg:"" name:"url"`
	Where      string   `help:"SQL where clause" default:"1=1"`
	OutFields  []string `help:"Fields to return" name:"fields" short:"f"`
	Limit      int      `help:"Maximum number of features to return"`
	Offset     int      `help:"Number of features to skip"`
	OutSR      int      `help:"WKID of the output spatial reference" name:"out-sr"`
	NoGeometry bool     `help:"Do not return feature geometries"`
	Count      bool     `help:"Only count matching features"`
}

// featureTable renders a feature set one feature per row
type featureTable struct {
	*feature.FeatureSet
}

func (t featureTable) columns() []string {
	result := make([]string, 0, len(t.Fields()))
	for _, field := range t.Fields() {
		result = append(result, field.Name)
	}
	if len(result) == 0 && t.Len() > 0 {
		result = t.Features()[0].Fields()
	}
	return result
}

func (t featureTable) Header() table.Row {
	row := table.Row{}
	for _, name := range t.columns() {
		row = append(row, name)
	}
	return append(row, "Geometry")
}

func (t featureTable) Rows() []table.Row {
	columns := t.columns()
	rows := make([]table.Row, 0, t.Len())
	for _, f := range t.Features() {
		row := make(table.Row, 0, len(columns)+1)
		for _, name := range columns {
			value, _ := f.GetValue(name)
			row = append(row, value)
		}
		rows = append(rows, append(row, f.GeometryType()))
	}
	return rows
}

func (c *QueryCmd) Run(cfg *commandContext) error {
	s, err := createService(cfg, c.URL)
	if err != nil {
		return err
	}

	layer, ok := s.(*service.FeatureLayer)
	if !ok {
		return grace.RaiseError("URL of a layer or a table", string(s.Kind()), "append layer id to the service URL, i.e. .../FeatureServer/0")
	}

	if c.Count {
		count, err := layer.Count(cfg.Context, c.Where)
		if err != nil {
			return err
		}
		fmt.Println(count)
		return nil
	}

	fs, err := layer.Query(cfg.Context, service.Query{
		Where:             c.Where,
		OutFields:         c.OutFields,
		OutSR:             c.OutSR,
		NoGeometry:        c.NoGeometry,
		ResultOffset:      c.Offset,
		ResultRecordCount: c.Limit,
	})
	if err != nil {
		return err
	}

	return cfg.OutputFormatter(featureTable{fs})
}
