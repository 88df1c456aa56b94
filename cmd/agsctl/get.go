package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sre-norns/ags/pkg/grace"
	"github.com/sre-norns/ags/pkg/service"
)

type (
	GetCmd struct {
		URL    string `help:"URL of a service or a layer" arg:"" name:"url"`
		Query  string `help:"jq expression applied to the resource properties" short:"q"`
		Layers bool   `help:"List layers of a map or a feature service instead of its properties"`
	}

	KindsCmd struct{}
)

type layerList []service.Service

func (l layerList) Header() table.Row {
	return table.Row{"Kind", "URL"}
}

func (l layerList) Rows() []table.Row {
	rows := make([]table.Row, 0, len(l))
	for _, s := range l {
		rows = append(rows, table.Row{s.Kind(), s.URL()})
	}
	return rows
}

func (l layerList) MarshalYAML() (interface{}, error) {
	return l.items(), nil
}

func (l layerList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.items())
}

func (l layerList) items() []map[string]string {
	result := make([]map[string]string, 0, len(l))
	for _, s := range l {
		result = append(result, map[string]string{"kind": string(s.Kind()), "url": s.URL()})
	}
	return result
}

type layered interface {
	Layers(ctx context.Context) ([]service.Service, error)
}

func createService(cfg *commandContext, serviceUrl string, opts ...service.Option) (service.Service, error) {
	client, err := cfg.connection("")
	if err != nil {
		return nil, err
	}

	s, err := service.Create(cfg.Context, serviceUrl, append([]service.Option{
		service.WithConnection(client),
		service.WithLogger(cfg.Logger),
	}, opts...)...)
	if errors.Is(err, service.ErrUnrecognizedResourceKind) {
		return nil, grace.WrapError(err, "URL of a service or a layer", serviceUrl, "run `agsctl kinds` to list supported resource kinds")
	}

	return s, err
}

func (c *GetCmd) Run(cfg *commandContext) error {
	s, err := createService(cfg, c.URL, service.WithInitialize(!c.Layers))
	if err != nil {
		return err
	}

	if c.Layers {
		parent, ok := s.(layered)
		if !ok {
			return grace.RaiseError("map or feature service", string(s.Kind()), "pass URL of a service that has layers")
		}

		layers, err := parent.Layers(cfg.Context)
		if err != nil {
			return err
		}
		return cfg.OutputFormatter(layerList(layers))
	}

	raw, err := s.Raw(cfg.Context)
	if err != nil {
		return err
	}

	if c.Query == "" {
		return cfg.OutputFormatter(raw)
	}

	result, err := executeJQ(raw, c.Query)
	if err != nil {
		return grace.WrapError(err, "valid jq expression", c.Query, "check the --query expression")
	}
	return cfg.OutputFormatter(result)
}

func executeJQ(input any, expression string) (any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, err
	}
	iter := query.Run(input)

	var results []any
	for {
		value, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := value.(error); ok {
			return nil, err
		}
		results = append(results, value)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	}
	return results, nil
}

func (c *KindsCmd) Run(cfg *commandContext) error {
	for _, kind := range service.ListKinds() {
		fmt.Println(kind)
	}
	return nil
}
