package main

import (
	"path"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sre-norns/ags/pkg/ags"
	"github.com/sre-norns/ags/pkg/catalog"
	"github.com/sre-norns/ags/pkg/service"
)

type (
	CatalogCmd struct {
		Server  string `help:"URL of the server or any of its resources" arg:"" name:"server-url"`
		Folder  string `help:"Folder to list services of" default:"root"`
		Folders bool   `help:"List folders instead of services"`
	}

	InfoCmd struct {
		Server string `help:"URL of the server or any of its resources" arg:"" name:"server-url"`
		Health bool   `help:"Run health check of the site"`
	}
)

type serviceEntry struct {
	Name string       `json:"name" yaml:"name"`
	Kind service.Kind `json:"kind" yaml:"kind"`
	URL  string       `json:"url" yaml:"url"`
}

type serviceList []serviceEntry

func (l serviceList) Header() table.Row {
	return table.Row{"Name", "Kind", "URL"}
}

func (l serviceList) Rows() []table.Row {
	rows := make([]table.Row, 0, len(l))
	for _, s := range l {
		rows = append(rows, table.Row{s.Name, s.Kind, s.URL})
	}
	return rows
}

type folderList []string

func (l folderList) Header() table.Row {
	return table.Row{"Folder"}
}

func (l folderList) Rows() []table.Row {
	rows := make([]table.Row, 0, len(l))
	for _, name := range l {
		rows = append(rows, table.Row{name})
	}
	return rows
}

func newServer(cfg *commandContext, serverUrl string) (*ags.Server, error) {
	urls, err := catalog.ParseServerURL(serverUrl)
	if err != nil {
		return nil, err
	}

	client, err := cfg.connection(urls.Rest)
	if err != nil {
		return nil, err
	}

	return ags.NewServer(serverUrl, client, ags.WithLogger(cfg.Logger))
}

func (c *CatalogCmd) Run(cfg *commandContext) error {
	server, err := newServer(cfg, c.Server)
	if err != nil {
		return err
	}

	cat, err := server.Catalog(cfg.Context)
	if err != nil {
		return err
	}

	if c.Folders {
		folders, err := cat.Folders(cfg.Context)
		if err != nil {
			return err
		}
		return cfg.OutputFormatter(folderList(folders))
	}

	if c.Folder != catalog.RootFolder {
		if err := cat.SetFolder(cfg.Context, c.Folder); err != nil {
			return err
		}
	}

	services, err := cat.Services(cfg.Context)
	if err != nil {
		return err
	}

	result := make(serviceList, 0, len(services))
	for _, s := range services {
		result = append(result, serviceEntry{
			Name: serviceName(cat.Location(), s.URL()),
			Kind: s.Kind(),
			URL:  s.URL(),
		})
	}

	return cfg.OutputFormatter(result)
}

// serviceName strips the folder location and the kind suffix from a service URL
func serviceName(location, serviceUrl string) string {
	return path.Dir(strings.TrimPrefix(serviceUrl, location+"/"))
}

type siteInfo struct {
	Rest    string         `json:"rest" yaml:"rest"`
	Admin   string         `json:"admin" yaml:"admin"`
	Version string         `json:"version" yaml:"version"`
	Info    map[string]any `json:"info,omitempty" yaml:"info,omitempty"`
	Health  map[string]any `json:"health,omitempty" yaml:"health,omitempty"`
}

func (c *InfoCmd) Run(cfg *commandContext) error {
	server, err := newServer(cfg, c.Server)
	if err != nil {
		return err
	}

	cat, err := server.Catalog(cfg.Context)
	if err != nil {
		return err
	}

	result := siteInfo{
		Rest:  server.URLs().Rest,
		Admin: server.URLs().Admin,
	}

	info, err := cat.Info(cfg.Context)
	if err != nil {
		return err
	}
	if result.Info, err = info.Raw(cfg.Context); err != nil {
		return err
	}
	fields, err := info.Fields(cfg.Context)
	if err != nil {
		return err
	}
	result.Version = fields.FullVersion

	if c.Health {
		site, err := server.Admin(cfg.Context)
		if err != nil {
			return err
		}
		adminInfo, err := site.Info(cfg.Context)
		if err != nil {
			return err
		}

		result.Health, err = adminInfo.HealthCheck(cfg.Context)
		if err != nil {
			return err
		}
	}

	return cfg.OutputFormatter(result)
}
