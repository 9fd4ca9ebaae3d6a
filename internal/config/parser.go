package config

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Parser errors.
var (
	ErrInvalidYAML   = errors.New("invalid YAML format")
	ErrInvalidNumber = errors.New("invalid number format")
	ErrFileNotFound  = errors.New("configuration file not found")
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadConfig loads configuration from a file path.
// It reads the file, substitutes environment variables, parses YAML,
// and applies defaults for missing values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data.
// It substitutes environment variables and applies defaults for missing values.
func ParseConfig(data []byte) (*Config, error) {
	data = substituteEnvVars(data)

	config := DefaultConfig()
	if err := parseYAML(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment variable values.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		content := string(match[2 : len(match)-1])

		if idx := strings.Index(content, ":-"); idx != -1 {
			varName := content[:idx]
			defaultVal := content[idx+2:]
			if val := os.Getenv(varName); val != "" {
				return []byte(val)
			}
			return []byte(defaultVal)
		}

		return []byte(os.Getenv(content))
	})
}

// yamlNode represents a parsed YAML mapping entry.
type yamlNode struct {
	key      string
	value    string
	indent   int
	children []*yamlNode
}

// parseYAML parses YAML data into the config struct.
func parseYAML(data []byte, config *Config) error {
	lines := strings.Split(string(data), "\n")
	root := &yamlNode{indent: -1}

	if err := buildTree(lines, root); err != nil {
		return err
	}

	return applyConfig(root, config)
}

// buildTree builds a tree structure from YAML lines.
func buildTree(lines []string, root *yamlNode) error {
	stack := []*yamlNode{root}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := countIndent(line)
		node, err := parseLine(trimmed, indent)
		if err != nil {
			return err
		}

		for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}

		parent := stack[len(stack)-1]
		parent.children = append(parent.children, node)
		stack = append(stack, node)
	}

	return nil
}

// countIndent counts the number of leading spaces.
func countIndent(line string) int {
	count := 0
	for _, ch := range line {
		if ch == ' ' {
			count++
		} else if ch == '\t' {
			count += 2 // Treat tab as 2 spaces
		} else {
			break
		}
	}
	return count
}

// parseLine parses a single "key: value" line.
func parseLine(line string, indent int) (*yamlNode, error) {
	colonIdx := strings.Index(line, ":")
	if colonIdx <= 0 {
		return nil, ErrInvalidYAML
	}

	key := strings.TrimSpace(line[:colonIdx])
	value := ""
	if colonIdx+1 < len(line) {
		value = strings.TrimSpace(line[colonIdx+1:])
	}
	value = stripComment(value)

	return &yamlNode{
		key:    key,
		value:  unquote(value),
		indent: indent,
	}, nil
}

// stripComment drops a trailing " # comment" from an unquoted value.
func stripComment(s string) string {
	if s == "" || s[0] == '"' || s[0] == '\'' {
		return s
	}
	if idx := strings.Index(s, " #"); idx != -1 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// applyConfig applies parsed YAML nodes to the config struct.
func applyConfig(root *yamlNode, config *Config) error {
	for _, node := range root.children {
		switch node.key {
		case "database":
			if err := applyDatabaseConfig(node, &config.Database); err != nil {
				return err
			}
		case "logging":
			applyLogConfig(node, &config.Logging)
		}
	}
	return nil
}

// applyDatabaseConfig applies database configuration.
func applyDatabaseConfig(node *yamlNode, config *DatabaseConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "path":
			if child.value != "" {
				config.Path = child.value
			}
		case "keyType":
			if child.value != "" {
				config.KeyType = strings.ToLower(child.value)
			}
		case "keySize":
			if err := parseInt(child.value, &config.KeySize); err != nil {
				return err
			}
		case "sectorSize":
			if err := parseInt(child.value, &config.SectorSize); err != nil {
				return err
			}
		case "autocommit":
			config.Autocommit = parseBool(child.value)
		case "cacheLimit":
			if err := parseInt(child.value, &config.CacheLimit); err != nil {
				return err
			}
		case "compression":
			if child.value != "" {
				config.Compression = strings.ToLower(child.value)
			}
		case "readOnly":
			config.ReadOnly = parseBool(child.value)
		}
	}
	return nil
}

// applyLogConfig applies logging configuration.
func applyLogConfig(node *yamlNode, config *LogConfig) {
	for _, child := range node.children {
		switch child.key {
		case "level":
			if child.value != "" {
				config.Level = child.value
			}
		case "format":
			if child.value != "" {
				config.Format = child.value
			}
		case "output":
			if child.value != "" {
				config.Output = child.value
			}
		}
	}
}

// parseInt parses a decimal integer into dst. An empty value leaves dst unchanged.
func parseInt(s string, dst *int) error {
	if s == "" {
		return nil
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return ErrInvalidNumber
	}
	*dst = val
	return nil
}

// parseBool parses a boolean string.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}
