package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Bootstrap holds static, rarely-changing defaults loaded once at startup
// from a YAML file rather than the environment: per-tenant defaults and the
// advertise settings a register publishes about itself to new members.
type Bootstrap struct {
	Environment string            `yaml:"environment"`
	Tenants     []TenantDefaults  `yaml:"tenants"`
	Advertise   AdvertiseDefaults `yaml:"advertise"`
}

// TenantDefaults seeds a new Organization's initial roster shape when no
// explicit admin list is supplied at register creation.
type TenantDefaults struct {
	TenantID      string   `yaml:"tenant_id"`
	InitialAdmins []string `yaml:"initial_admins"`
	DefaultOwner  string   `yaml:"default_owner"`
}

// AdvertiseDefaults describes what a register reports about itself (docket
// interval, preferred quorum) to prospective members before they join.
type AdvertiseDefaults struct {
	DocketInterval Duration `yaml:"docket_interval"`
	MinQuorumSize  int      `yaml:"min_quorum_size"`
	NetworkName    string   `yaml:"network_name"`
}

// Duration wraps time.Duration for YAML unmarshaling of "5s"-style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} references
// in the raw file contents before YAML parsing.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// LoadBootstrap reads and parses a bootstrap file from path, substituting
// ${VAR_NAME} environment references first.
func LoadBootstrap(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read bootstrap file %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var b Bootstrap
	if err := yaml.Unmarshal([]byte(expanded), &b); err != nil {
		return nil, fmt.Errorf("config: parse bootstrap file %s: %w", path, err)
	}
	if b.Advertise.MinQuorumSize == 0 {
		b.Advertise.MinQuorumSize = 1
	}
	return &b, nil
}

// TenantFor looks up the TenantDefaults for a tenant ID, if any was
// configured in the bootstrap file.
func (b *Bootstrap) TenantFor(tenantID string) (TenantDefaults, bool) {
	for _, t := range b.Tenants {
		if t.TenantID == tenantID {
			return t, true
		}
	}
	return TenantDefaults{}, false
}
