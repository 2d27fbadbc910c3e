package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/ssetap/internal/dagger"
)

// Build and return directory of go binaries
func (s *Ssetap) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	platforms := []dagger.Platform{"linux/amd64", "linux/arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	for _, platform := range platforms {
		path := string(platform) + "/"

		build := s.goContainer(platform).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/ssetap"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (s *Ssetap) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/ssetap/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/ssetap/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/ssetap/pkg/utils.Buildtime=%s'", buildtime),
	}

	return s.Build(ctx, strings.Join(ldflags, " "))
}
