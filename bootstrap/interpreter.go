package bootstrap

import "path/filepath"

// interpreterCandidates are the interpreter locations inside an environment
// root, in lookup order.
var interpreterCandidates = []string{
	filepath.Join("bin", "python3"),
	filepath.Join("bin", "python"),
	filepath.Join("Scripts", "python.exe"),
}

// findInterpreter returns the environment's interpreter under root.
func findInterpreter(root string) (string, bool) {
	for _, rel := range interpreterCandidates {
		path := filepath.Join(root, rel)
		if isExecutable(path) {
			return path, true
		}
	}

	return "", false
}
