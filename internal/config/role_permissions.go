package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRolePermissions reads a YAML document mapping role names to permission lists:
//
//	admin:
//	  - users.read
//	  - users.write
//
// An empty path yields an empty map.
func LoadRolePermissions(path string) (map[string][]string, error) {
	roles := make(map[string][]string)
	if strings.TrimSpace(path) == "" {
		return roles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config LoadRolePermissions] failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &roles); err != nil {
		return nil, fmt.Errorf("[config LoadRolePermissions] failed to parse %s: %w", path, err)
	}

	for role, permissions := range roles {
		if strings.TrimSpace(role) == "" {
			return nil, fmt.Errorf("[config LoadRolePermissions] empty role name in %s", path)
		}
		if permissions == nil {
			roles[role] = []string{}
		}
	}
	return roles, nil
}
