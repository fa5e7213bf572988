// Package env composes child-process environments.
package env

import (
	"os"
	"sort"
	"strings"
)

type Var map[string]string

// Env holds the base environment children inherit. The zero value is not
// usable; call New or FromList.
type Env struct {
	base Var
}

// New returns an Env whose base is the current process environment.
func New() *Env { return FromList(os.Environ()) }

// FromList returns an Env whose base is the given "K=V" list.
func FromList(list []string) *Env {
	return &Env{base: parse(list)}
}

// Merge composes the final environment: base, then perProc "K=V" entries.
// ${VAR} references in perProc values are expanded once against the composed
// map; unknown references are left untouched. Base values are passed through
// verbatim. The result is sorted by key.
func (e *Env) Merge(perProc []string) []string {
	m := make(Var, len(e.base)+len(perProc))
	for k, v := range e.base {
		m[k] = v
	}
	over := parse(perProc)
	for k, v := range over {
		m[k] = v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if _, ok := over[k]; ok {
			v = expand(v, m)
		}
		out = append(out, k+"="+v)
	}
	return out
}

func parse(list []string) Var {
	m := make(Var, len(list))
	for _, kv := range list {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		m[k] = v
	}
	return m
}

// expand replaces ${NAME} with its value from m. Bare $NAME is not expanded.
func expand(s string, m Var) string {
	if !strings.Contains(s, "${") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		j := strings.IndexByte(s[i+2:], '}')
		if j < 0 {
			b.WriteString(s)
			return b.String()
		}
		name := s[i+2 : i+2+j]
		b.WriteString(s[:i])
		if v, ok := m[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[i : i+3+j])
		}
		s = s[i+3+j:]
	}
}
