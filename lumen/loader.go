package lumen

import (
	"os"
	"path/filepath"
)

func registerRequire(s *State) {
	s.registerNative("require", nativeRequire)
}

// nativeRequire implements spec §4.5's loader: candidate paths are tried in
// order (a path relative to the requiring file's own directory, then the
// raw name as given), each candidate is canonicalized for use as a cache
// key, and a "loading" nil sentinel is recorded in loadedModules BEFORE the
// file is parsed/evaluated. A require of the same file from within its own
// loading therefore finds the sentinel and returns nil instead of
// re-entering, breaking require cycles exactly as the original does.
func nativeRequire(s *State, args []Value, env *Frame) Value {
	if len(args) != 1 || args[0].IsNumber() || args[0].Type() != TagString {
		panic(s.runtimeError("require requires a string argument"))
	}
	name := s.StringValue(args[0])

	var candidates []string
	if loc, ok := s.GetSourceLoc(s.currentExpr); ok && loc.File != "" && loc.File != "<repl>" {
		candidates = append(candidates, filepath.Join(filepath.Dir(loc.File), name))
	}
	candidates = append(candidates, name)

	var tried []string
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			tried = append(tried, candidate)
			continue
		}
		key := candidate
		if abs, err := filepath.Abs(candidate); err == nil {
			key = abs
		}
		if v, ok := s.loadedModules[key]; ok {
			return v
		}
		data, err := os.ReadFile(candidate)
		if err != nil {
			tried = append(tried, candidate)
			continue
		}
		s.loadedModules[key] = Nil
		forms := s.ParseAll(string(data), key)
		result := s.DoList(forms, s.Global)
		s.loadedModules[key] = result
		return result
	}
	panic(s.runtimeError("require: could not find module %q (tried %v)", name, tried))
}
