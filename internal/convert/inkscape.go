package convert

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/hashicorp/go-version"

	"github.com/mmr-tortoise/overlay-export/internal/model"
)

// DefaultBinary is the Inkscape executable looked up on PATH.
const DefaultBinary = "inkscape"

// MinimumVersion is the oldest Inkscape release whose shell understands the
// export actions used here.
const MinimumVersion = "1.1.2"

var minimumVersion = version.Must(version.NewVersion(MinimumVersion))

// versionPattern matches the first line of `inkscape --version`, e.g.
// "Inkscape 1.1.2 (0a00cf5339, 2022-02-04)".
var versionPattern = regexp.MustCompile(`(?m)^\s*Inkscape\s+(\S+)`)

// LookupInkscape resolves binary (DefaultBinary when empty) to an
// executable path. A missing tool is reported with ExitToolNotFound.
func LookupInkscape(binary string) (string, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitToolNotFound,
			fmt.Sprintf("%s not found; install Inkscape %s or later, or use --mode docker", binary, MinimumVersion),
			err,
		)
	}
	return path, nil
}

// ParseVersion extracts the Inkscape version from `inkscape --version`
// output. Lines before the version line (GTK or Pango warnings) are
// ignored.
func ParseVersion(output string) (*version.Version, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return nil, fmt.Errorf("no Inkscape version found in %q", output)
	}
	v, err := version.NewVersion(m[1])
	if err != nil {
		return nil, fmt.Errorf("invalid Inkscape version %q: %w", m[1], err)
	}
	return v, nil
}

// CheckVersion fails with ExitToolVersion when v is older than
// MinimumVersion.
func CheckVersion(v *version.Version) error {
	if v.LessThan(minimumVersion) {
		return model.NewCLIError(
			model.ExitToolVersion,
			fmt.Sprintf("Inkscape %s is installed but version %s or above is needed", v, MinimumVersion),
		)
	}
	return nil
}

// ProbeVersion runs `binary --version` and parses the result.
func ProbeVersion(ctx context.Context, binary string) (*version.Version, error) {
	out, err := runTool(ctx, model.ExitToolNotFound, binary, "--version")
	if err != nil {
		return nil, err
	}
	v, err := ParseVersion(out)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitToolVersion, "cannot determine the Inkscape version", err)
	}
	return v, nil
}

// exportArgs builds the command-line arguments that convert svg to out.
// The output type follows the extension of out.
func exportArgs(area model.ExportArea, svg, out string) []string {
	args := []string{svg}
	if area != model.AreaPage {
		args = append(args, "--export-area-drawing")
	}
	return append(args, "--export-filename", out)
}
