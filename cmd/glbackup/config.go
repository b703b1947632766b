package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"olowe.co/glbackup/gitlab"
)

const defaultOutput = "gitlab_issues_backup.json"

// Config is read once at startup and never modified afterwards.
type Config struct {
	Token    string `yaml:"private_token"`
	Project  string `yaml:"project_path"`
	URL      string `yaml:"url"`
	Tracker  string `yaml:"tracker"`
	Output   string `yaml:"output"`
	Query    string `yaml:"query"`
	Username string `yaml:"username"`
}

func readConfig(name string) (*Config, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	conf, err := parseConfig(b)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", name, err)
	}
	if conf.Token == "" {
		host, err := conf.host()
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", name, err)
		}
		conf.Token, err = readToken(conf.Tracker, host)
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
	}
	return conf, nil
}

func parseConfig(b []byte) (*Config, error) {
	var conf Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&conf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if conf.Project == "" {
		return nil, errors.New("missing project_path")
	}
	switch conf.Tracker {
	case "":
		conf.Tracker = "gitlab"
	case "gitlab", "github":
	case "jira":
		if conf.URL == "" {
			return nil, errors.New("jira tracker needs url")
		}
	default:
		return nil, fmt.Errorf("unknown tracker %q", conf.Tracker)
	}
	if conf.Query != "" && conf.Tracker != "gitlab" {
		return nil, fmt.Errorf("query not supported by %s tracker", conf.Tracker)
	}
	if conf.Output == "" {
		conf.Output = defaultOutput
	}
	return &conf, nil
}

// host returns the host name of the tracker's API.
func (c *Config) host() (string, error) {
	raw := c.URL
	if raw == "" {
		if c.Tracker == "github" {
			return "github.com", nil
		}
		raw = gitlab.Hosted
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %s: missing host", raw)
	}
	return u.Host, nil
}

// readToken reads the access token stored for host,
// such as ~/.config/gitlab/gitlab.com.
// A missing token file is not an error; the empty token is returned.
func readToken(service, host string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path.Join(dir, service, host))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
