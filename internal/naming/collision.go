package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve returns candidate unchanged if no file of that name exists in dir,
// otherwise appends _2, _3, ... before the extension until the name is free.
//
// The check is a read of the folder namespace; callers that move files
// concurrently into the same folder must hold that folder's lock across
// Resolve and the subsequent rename.
func Resolve(dir, candidate string) (string, error) {
	free, err := nameFree(dir, candidate)
	if err != nil {
		return "", err
	}
	if free {
		return candidate, nil
	}

	ext := filepath.Ext(candidate)
	base := strings.TrimSuffix(candidate, ext)
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s_%d%s", base, n, ext)
		free, err := nameFree(dir, name)
		if err != nil {
			return "", err
		}
		if free {
			return name, nil
		}
	}
}

// ResolvePath is Resolve returning the joined destination path.
func ResolvePath(dir, candidate string) (string, error) {
	name, err := Resolve(dir, candidate)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func nameFree(dir, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe %s: %w", name, err)
	}
	return false, nil
}
