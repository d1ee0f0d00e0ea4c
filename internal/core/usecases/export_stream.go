package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
)

// ErrConsumerGone is returned by WriteTo when the destination stopped
// accepting bytes, typically because the client disconnected.
var ErrConsumerGone = errors.New("export consumer stopped reading")

// flushEvery bounds how many body chunks sit in a buffered writer.
const flushEvery = 512

var tracer = otel.Tracer("github.com/gemfoundation/exposure/internal/core/usecases")

type exportStage int

const (
	stageResolveIDs exportStage = iota
	stagePopulation
	stageRatios
	stageFractions
	stageHeader
	stageBody
	stageFooter
	stageDone
)

// ExportStream is a pull-based, forward-only producer of export chunks.
//
// Each call to Next does at most one unit of work: one repository lookup,
// one population row expansion, or one emitted chunk. A call that only
// performed a lookup returns a nil chunk and a nil error. The end of the
// document is reported with io.EOF.
type ExportStream struct {
	repo      ports.ExposureRepository
	req       domain.ExportRequest
	enc       Encoder
	cols      domain.AdminLevelColumns
	occupancy []int

	stage     exportStage
	adminIDs  []int64
	regionIDs []int64
	ratios    []domain.PopRatio
	rows      ports.PopulationRows
	joiner    *assetJoiner
	chunks    [][]byte
	pending   []domain.Asset
	next      int
	records   int
	complete  bool
	err       error
}

// Request returns the parsed request the stream was built from.
func (s *ExportStream) Request() domain.ExportRequest { return s.req }

// Records returns how many asset records have been emitted so far.
func (s *ExportStream) Records() int { return s.records }

// Complete reports whether the whole document, footer included, was produced.
func (s *ExportStream) Complete() bool { return s.complete }

// Next produces the next chunk of the document.
func (s *ExportStream) Next(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	chunk, err := s.step(ctx)
	if err != nil {
		s.Close()
		s.err = err
	}
	return chunk, err
}

func (s *ExportStream) step(ctx context.Context) ([]byte, error) {
	switch s.stage {
	case stageResolveIDs:
		ctx, span := startSpan(ctx, "export.admin_region_ids", attribute.String("admin.column", s.cols.Column))
		adminIDs, regionIDs, err := s.repo.AdminLevelAndRegionIDs(ctx, s.req.Box, s.cols)
		endSpan(span, err)
		if err != nil {
			return nil, fmt.Errorf("resolve admin and region ids: %w", err)
		}
		s.adminIDs, s.regionIDs = adminIDs, regionIDs
		s.stage = stagePopulation
		return nil, nil

	case stagePopulation:
		ctx, span := startSpan(ctx, "export.population_table", attribute.String("admin.column", s.cols.Column))
		rows, err := s.repo.PopulationTable(ctx, s.req.Box, s.cols)
		endSpan(span, err)
		if err != nil {
			return nil, fmt.Errorf("population table: %w", err)
		}
		s.rows = rows
		if s.req.Kind == domain.ExportPopulation {
			s.enterHeader()
		} else {
			s.stage = stageRatios
		}
		return nil, nil

	case stageRatios:
		ctx, span := startSpan(ctx, "export.pop_ratios", attribute.String("time_of_day", string(s.req.TimeOfDay)))
		ratios, err := s.repo.PopRatios(ctx, s.regionIDs, s.req.TimeOfDay, s.occupancy)
		endSpan(span, err)
		if err != nil {
			return nil, fmt.Errorf("population ratios: %w", err)
		}
		s.ratios = ratios
		s.stage = stageFractions
		return nil, nil

	case stageFractions:
		ctx, span := startSpan(ctx, "export.dwelling_fractions", attribute.Int("admin.ids", len(s.adminIDs)))
		fractions, err := s.repo.DwellingFractions(ctx, s.adminIDs, s.occupancy, s.cols)
		endSpan(span, err)
		if err != nil {
			return nil, fmt.Errorf("dwelling fractions: %w", err)
		}
		s.joiner = newAssetJoiner(s.ratios, fractions)
		s.ratios = nil
		s.enterHeader()
		return nil, nil

	case stageHeader:
		chunk := s.chunks[0]
		s.chunks = s.chunks[1:]
		if len(s.chunks) == 0 {
			s.stage = stageBody
		}
		return chunk, nil

	case stageBody:
		if s.next < len(s.pending) {
			a := s.pending[s.next]
			s.next++
			s.records++
			return s.enc.Record(a), nil
		}
		if s.rows.Next() {
			row := s.rows.Row()
			if s.joiner == nil {
				s.records++
				return s.enc.Record(populationAsset(row)), nil
			}
			s.pending = s.joiner.expand(row, s.pending[:0])
			s.next = 0
			return nil, nil
		}
		if err := s.rows.Err(); err != nil {
			return nil, fmt.Errorf("read population table: %w", err)
		}
		s.rows.Close()
		s.rows = nil
		s.chunks = s.enc.Footer()
		s.stage = stageFooter
		return nil, nil

	case stageFooter:
		if len(s.chunks) == 0 {
			s.stage = stageDone
			s.complete = true
			return nil, io.EOF
		}
		chunk := s.chunks[0]
		s.chunks = s.chunks[1:]
		return chunk, nil
	}
	return nil, io.EOF
}

func (s *ExportStream) enterHeader() {
	s.chunks = s.enc.Header()
	s.stage = stageHeader
	if len(s.chunks) == 0 {
		s.stage = stageBody
	}
}

// Close releases the population cursor. It is safe to call more than once.
func (s *ExportStream) Close() {
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
	s.stage = stageDone
}

type flusher interface {
	Flush() error
}

// WriteTo drains the stream into w. Write failures are reported wrapped in
// ErrConsumerGone; producer failures are returned as is.
func (s *ExportStream) WriteTo(ctx context.Context, w io.Writer) error {
	defer s.Close()

	f, canFlush := w.(flusher)
	unflushed := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrConsumerGone, err)
		}
		inBody := s.stage == stageBody
		chunk, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			continue
		}
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("%w: %v", ErrConsumerGone, err)
		}
		unflushed++
		if canFlush && (!inBody || unflushed >= flushEvery) {
			if err := f.Flush(); err != nil {
				return fmt.Errorf("%w: %v", ErrConsumerGone, err)
			}
			unflushed = 0
		}
	}
	if canFlush && unflushed > 0 {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("%w: %v", ErrConsumerGone, err)
		}
	}
	return nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
