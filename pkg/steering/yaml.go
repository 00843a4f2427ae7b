package steering

import (
	"fmt"
	"io/ioutil"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Parse compiles a table from YAML.
func Parse(data []byte) (*Table, error) {
	var spec TableSpec
	if err := yaml.UnmarshalStrict(data, &spec); err != nil {
		return nil, fmt.Errorf("parse table error: %v", err)
	}
	return Compile(spec)
}

// LoadFile compiles a table from a YAML file.
func LoadFile(fn string) (*Table, error) {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}
	return t, nil
}

// Marshal writes the spec of the table as YAML.
func Marshal(t *Table) ([]byte, error) {
	return yaml.Marshal(t.Spec())
}

// Load returns a built-in variant by name, or compiles the named file if
// no variant matches.
func Load(nameOrFile string) (*Table, error) {
	if nameOrFile == "" {
		nameOrFile = DefaultVariant
	}
	if t, ok := Variants[nameOrFile]; ok {
		return t, nil
	}
	if _, err := os.Stat(nameOrFile); err != nil {
		return nil, fmt.Errorf("unknown table %q, built-ins are %v", nameOrFile, VariantNames())
	}
	return LoadFile(nameOrFile)
}

// SaveFile writes the table in use next to the given path, so a run can
// be reproduced from the exact table it used.
func SaveFile(t *Table, fn string) error {
	data, err := Marshal(t)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(fn, data, 0644)
}
