package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/pkg/validation"
)

var errBadBBox = errors.New("bbox must be lat1,lng1,lat2,lng2")

// bboxArgs mirrors the query parameters of the HTTP endpoints.
type bboxArgs struct {
	Lat1 string `json:"lat1" validate:"required,latitude"`
	Lng1 string `json:"lng1" validate:"required,longitude"`
	Lat2 string `json:"lat2" validate:"required,latitude"`
	Lng2 string `json:"lng2" validate:"required,longitude"`
}

// ParseBBox reads "lat1,lng1,lat2,lng2".
func ParseBBox(s string) (domain.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BoundingBox{}, fmt.Errorf("%w, got %q", errBadBBox, s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	args := bboxArgs{Lat1: parts[0], Lng1: parts[1], Lat2: parts[2], Lng2: parts[3]}
	if err := validation.Struct(args); err != nil {
		return domain.BoundingBox{}, err
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return domain.BoundingBox{}, fmt.Errorf("%w: %q is not a number", errBadBBox, p)
		}
		vals[i] = v
	}
	return domain.BoundingBox{Lat1: vals[0], Lng1: vals[1], Lat2: vals[2], Lng2: vals[3]}, nil
}

type exportFlags struct {
	bbox        string
	format      string
	output      string
	residential string
	timeOfDay   string
	adminLevel  string
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bbox, "bbox", "", "bounding box as lat1,lng1,lat2,lng2")
	cmd.Flags().StringVar(&f.format, "format", "csv", "output format: csv or nrml")
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("bbox")
}

func newBuildingCommand(open OpenFunc) *cobra.Command {
	flags := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "building",
		Short: "Export building exposure",
		Example: `  exposure-export building --bbox 45,8,46,9 --residential res --tod night --admin-level admin1 -o out.csv
  exposure-export building --bbox 45,8,46,9 --format nrml --residential both --tod all --admin-level admin0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, open, flags, domain.ExportBuilding)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.residential, "residential", "both", "occupancy: res, non-res or both")
	cmd.Flags().StringVar(&flags.timeOfDay, "tod", "off", "time of day: day, night, transit, all or off")
	cmd.Flags().StringVar(&flags.adminLevel, "admin-level", "admin0", "grouping level: admin0 to admin3")
	return cmd
}

func newPopulationCommand(open OpenFunc) *cobra.Command {
	flags := &exportFlags{}
	cmd := &cobra.Command{
		Use:     "population",
		Short:   "Export gridded population",
		Example: `  exposure-export population --bbox 45,8,46,9 -o population.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, open, flags, domain.ExportPopulation)
		},
	}
	flags.register(cmd)
	return cmd
}

func runExport(cmd *cobra.Command, open OpenFunc, flags *exportFlags, kind domain.ExportKind) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	box, err := ParseBBox(flags.bbox)
	if err != nil {
		return err
	}
	req := domain.ExportRequest{
		Kind:   kind,
		Format: domain.OutputFormat(flags.format),
		Box:    box,
	}
	if kind == domain.ExportBuilding {
		req.Residential = domain.Residential(flags.residential)
		req.TimeOfDay = domain.TimeOfDay(flags.timeOfDay)
		req.AdminLevel = domain.AdminLevel(flags.adminLevel)
	}

	exporter, release, err := open(ctx)
	if err != nil {
		return err
	}
	defer release()

	// Stream rejects the request before anything is read or written.
	st, err := exporter.Stream(ctx, req)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd, flags.output)
	if err != nil {
		return err
	}
	defer closeOut()

	bw := bufio.NewWriter(out)
	if err := exporter.Drain(ctx, st, bw, ""); err != nil {
		return fmt.Errorf("export %s: %w", kind, err)
	}
	if !st.Complete() {
		return fmt.Errorf("export %s: output truncated after %d records", kind, st.Records())
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if flags.output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", st.Records(), flags.output)
	}
	return nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
