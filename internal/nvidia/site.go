package nvidia

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/otaranenko/ukscribe/internal/whisper"
)

const siteQuery = "import site, json; paths = list(site.getsitepackages()); paths.append(site.getusersitepackages()); print(json.dumps(paths))"

// SitePackagesRoots asks the Python interpreter for its system-wide and
// user-local site-packages directories. Any failure (no interpreter, odd
// output) yields an empty list; the repair pass then simply finds no
// candidates.
func SitePackagesRoots() []string {
	python, err := whisper.ResolvePython()
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, python, "-c", siteQuery).Output()
	if err != nil {
		return nil
	}

	return parseSiteRoots(out)
}

func parseSiteRoots(out []byte) []string {
	var roots []string
	if err := json.Unmarshal(out, &roots); err != nil {
		return nil
	}

	filtered := roots[:0]
	for _, root := range roots {
		if strings.TrimSpace(root) != "" {
			filtered = append(filtered, root)
		}
	}
	return filtered
}
