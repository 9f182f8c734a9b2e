package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// writeGenerated materializes the plan's in-memory files under AssetPath.
func writeGenerated(plan FunctionPlan) error {
	for name, content := range plan.Generated {
		clean := filepath.Clean(filepath.FromSlash(name))
		if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return fmt.Errorf("infra: generated file %q escapes the asset directory", name)
		}
		target := filepath.Join(plan.AssetPath, clean)
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("infra: create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, []byte(content), 0o600); err != nil {
			return fmt.Errorf("infra: write %s: %w", target, err)
		}
	}
	return nil
}
