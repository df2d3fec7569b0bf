// Copyright 2026 Tedrolin

package connector

import (
	_ "embed"
	"text/template"

	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// Config holds the WeChat PC connector configuration.
type Config struct {
	// URI is the WebSocket endpoint of the hook server. Required.
	URI string `yaml:"uri"`
	// AppID/AppKey enable the signed-handshake query string on hook
	// servers that require it. Leave empty for unauthenticated servers.
	AppID  string `yaml:"app_id"`
	AppKey string `yaml:"app_key"`

	DisplaynameTemplate string `yaml:"displayname_template"`

	// RosterRefreshMinutes is the interval of the background roster
	// refresh. Defaults to 10.
	RosterRefreshMinutes int `yaml:"roster_refresh_minutes"`

	displaynameTemplate *template.Template `yaml:"-"`
}

// DisplaynameParams holds the parameters for rendering the displayname
// template.
type DisplaynameParams struct {
	Username string
	Nickname string
	Wxid     string
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

func (c *Config) PostProcess() error {
	var err error
	c.displaynameTemplate, err = template.New("displayname").Parse(c.DisplaynameTemplate)
	return err
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "uri")
	helper.Copy(up.Str, "app_id")
	helper.Copy(up.Str, "app_key")
	helper.Copy(up.Str, "displayname_template")
	helper.Copy(up.Int, "roster_refresh_minutes")
}

func (wc *WeChatConnector) GetConfig() (example string, data any, upgrader up.Upgrader) {
	return ExampleConfig, &wc.Config, &up.StructUpgrader{
		SimpleUpgrader: up.SimpleUpgrader(upgradeConfig),
		Blocks:         nil,
		Base:           ExampleConfig,
	}
}

// FormatDisplayname renders the displayname template, falling back to
// the username/nickname/wxid chain when no template is configured or
// rendering fails.
func (c *Config) FormatDisplayname(params DisplaynameParams) string {
	fallback := params.Username
	if fallback == "" {
		fallback = params.Nickname
	}
	if fallback == "" {
		fallback = params.Wxid
	}
	if c.displaynameTemplate == nil {
		return fallback
	}
	var buf []byte
	err := c.displaynameTemplate.Execute(
		(*templateBuffer)(&buf),
		params,
	)
	if err != nil || len(buf) == 0 {
		return fallback
	}
	return string(buf)
}

// templateBuffer is a simple io.Writer that appends to a byte slice.
type templateBuffer []byte

func (b *templateBuffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
