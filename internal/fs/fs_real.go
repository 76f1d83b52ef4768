package fs

import "path/filepath"

func absImpl(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// The path may not exist yet (e.g. a probe during module lookup);
		// fall back to the non-symlink-resolved absolute path rather than
		// failing the whole resolution.
		return abs, nil
	}
	return resolved, nil
}

func joinImpl(parts []string) string {
	return filepath.Join(parts...)
}

func dirImpl(path string) string {
	return filepath.Dir(path)
}
