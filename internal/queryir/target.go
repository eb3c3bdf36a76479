package queryir

import "fmt"

// Target identifies a query language a tree can be rendered into.
type Target string

const (
	TargetInflux Target = "influx"
	TargetMySQL  Target = "mysql"
	TargetMongo  Target = "mongo"
	TargetPandas Target = "pandas"
)

// Targets lists every supported target in a stable order.
var Targets = []Target{TargetInflux, TargetMySQL, TargetMongo, TargetPandas}

// ParseTarget converts a target name to a Target.
func ParseTarget(s string) (Target, error) {
	for _, t := range Targets {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target %q (want one of %v)", s, Targets)
}

// Operators maps a target to the operator token a kind renders as.
type Operators map[Target]string

// Op returns the operator token of k for target t.
func (k *Kind) Op(t Target) (string, bool) {
	op, ok := k.Operators[t]
	return op, ok
}
