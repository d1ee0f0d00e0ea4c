// Package cli implements the exposure-export command line tool, which runs
// building and population exports against the exposure database without
// going through the HTTP API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/usecases"
	"github.com/gemfoundation/exposure/internal/pkg/validation"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes.
const (
	ExitGeneralError = 1
	ExitInvalidInput = 2
	ExitAreaTooLarge = 3
)

// Exporter runs exports. *usecases.ExportService satisfies it.
type Exporter interface {
	Stream(ctx context.Context, req domain.ExportRequest) (*usecases.ExportStream, error)
	Drain(ctx context.Context, st *usecases.ExportStream, w io.Writer, userID string) error
}

// OpenFunc connects an Exporter. The returned func releases its resources.
type OpenFunc func(ctx context.Context) (Exporter, func(), error)

// NewRootCommand builds the exposure-export command tree.
func NewRootCommand(open OpenFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "exposure-export",
		Short: "Export GEM exposure or population for a bounding box",
		Long: `exposure-export streams the building exposure or the gridded population
inside a bounding box as CSV or NRML, using the same rules as the
/exposure/export_* endpoints.

The box is given as lat1,lng1,lat2,lng2 (two opposite corners).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	root.AddCommand(newBuildingCommand(open))
	root.AddCommand(newPopulationCommand(open))
	return root
}

// Execute runs root and exits with a code describing the failure.
func Execute(ctx context.Context, root *cobra.Command) {
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitCode(err))
	}
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var verr *validation.Error
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidBoundingBox):
		return ExitAreaTooLarge
	case errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrInvalidParameter),
		errors.Is(err, errBadBBox),
		errors.As(err, &verr):
		return ExitInvalidInput
	}
	return ExitGeneralError
}
