// Package transfer moves requests in and out of CSV files. Imports go
// through the request service row by row; exports read through List.
package transfer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apprequest "kreltrack/internal/application/request"
	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/shared/logger"
)

const utf8BOM = "\ufeff"

type RequestWriter interface {
	Create(ctx context.Context, candidate request.Patch, actor user.Actor) (string, error)
	Update(ctx context.Context, number string, patch request.Patch, actor user.Actor, opts ...apprequest.UpdateOption) (*request.Request, error)
}

type RequestLister interface {
	List(ctx context.Context, filter request.Filter) ([]*request.Request, error)
}

// RowError is a rejected data row; Line counts the header as line 1.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

type ImportResult struct {
	Imported []string
	Skipped  int
	Errors   []RowError
}

type Service struct {
	writer RequestWriter
	lister RequestLister
	logger logger.Interface
}

func NewService(writer RequestWriter, lister RequestLister, log logger.Interface) *Service {
	return &Service{
		writer: writer,
		lister: lister,
		logger: log.Named("request.transfer"),
	}
}

// Import reads a CSV encoded as UTF-8 (with or without BOM) or Windows-1252.
// Rows with a blank requester are skipped. A row whose status is past Draft
// is created as Draft and walked to that status with updates. A failing row
// is reported and does not stop the import.
func (s *Service) Import(ctx context.Context, r io.Reader, actor user.Actor) (*ImportResult, error) {
	decoded, err := decode(r)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv file is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	fields := make([]string, len(header))
	hasRequester := false
	for i, h := range header {
		fields[i] = canonicalHeader(h)
		hasRequester = hasRequester || fields[i] == request.FieldRequester
	}
	if !hasRequester {
		return nil, fmt.Errorf("csv header has no %s column", request.FieldRequester)
	}

	result := &ImportResult{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		record, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Err: err})
			continue
		}

		patch, target := rowPatch(fields, record)
		if strings.TrimSpace(patch.Requester.Value()) == "" {
			result.Skipped++
			continue
		}

		number, err := s.writer.Create(ctx, patch, actor)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Err: err})
			continue
		}
		result.Imported = append(result.Imported, number)

		if err := s.advance(ctx, number, target, actor); err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Err: fmt.Errorf("created %s but %w", number, err)})
		}
	}

	s.logger.Infow("csv import finished",
		"imported", len(result.Imported),
		"skipped", result.Skipped,
		"failed", len(result.Errors),
		"user", actor.Username,
	)
	return result, nil
}

// advance walks a new Draft request to target one legal step at a time.
func (s *Service) advance(ctx context.Context, number string, target vo.Status, actor user.Actor) error {
	if target == "" || target == vo.StatusDraft {
		return nil
	}
	path := statusPath(vo.StatusDraft, target)
	if path == nil {
		return fmt.Errorf("status %s is not reachable", target)
	}
	for _, step := range path {
		if _, err := s.writer.Update(ctx, number, request.Patch{Status: request.Set(step.String())}, actor); err != nil {
			return fmt.Errorf("could not move to %s: %w", step, err)
		}
	}
	return nil
}

// rowPatch builds the create candidate for a row and returns the status the
// row asks for separately.
func rowPatch(fields, record []string) (request.Patch, vo.Status) {
	var (
		p      request.Patch
		target vo.Status
	)
	for i, value := range record {
		if i >= len(fields) || fields[i] == "" || fields[i] == ColumnNumber {
			continue
		}
		value = strings.TrimSpace(value)
		if strings.EqualFold(value, "nan") {
			value = ""
		}
		if value == "" {
			continue
		}
		if fields[i] == request.FieldStatus {
			target = vo.Status(value)
			if target == vo.StatusDraft || !target.IsValid() {
				// invalid values go through validation for a proper message
				_ = p.SetByName(fields[i], value)
				target = ""
			}
			continue
		}
		_ = p.SetByName(fields[i], value)
	}
	return p, target
}

// statusPath returns the shortest chain of transitions from -> to, excluding from.
func statusPath(from, to vo.Status) []vo.Status {
	prev := map[vo.Status]vo.Status{from: from}
	queue := []vo.Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			var path []vo.Status
			for s := to; s != from; s = prev[s] {
				path = append([]vo.Status{s}, path...)
			}
			return path
		}
		for _, next := range vo.AllStatuses {
			if _, seen := prev[next]; seen || !cur.CanTransitionTo(next) {
				continue
			}
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	return nil
}

// decode picks UTF-8 when the content is valid UTF-8 and Windows-1252
// otherwise. A UTF-8 BOM is dropped.
func decode(r io.Reader) (io.Reader, error) {
	raw, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if utf8.Valid(raw) {
		return transform.NewReader(bytes.NewReader(raw), unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	}
	return transform.NewReader(bytes.NewReader(raw), charmap.Windows1252.NewDecoder()), nil
}

// Export writes the matching requests as UTF-8 CSV with a BOM so
// spreadsheet tools pick the right encoding. It returns the row count.
func (s *Service) Export(ctx context.Context, w io.Writer, filter request.Filter) (int, error) {
	list, err := s.lister.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return 0, fmt.Errorf("failed to write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return 0, fmt.Errorf("failed to write csv: %w", err)
	}
	row := make([]string, len(exportColumns))
	for _, r := range list {
		for i, col := range exportColumns {
			if col == ColumnNumber {
				row[i] = r.Number()
				continue
			}
			row[i] = r.FieldValue(col)
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("failed to write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to write csv: %w", err)
	}

	s.logger.Infow("csv export finished", "rows", len(list))
	return len(list), nil
}

// Template writes an import template: the localised header and one sample
// row, UTF-8 with a BOM like Export.
func (s *Service) Template(w io.Writer, now time.Time) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write csv template: %w", err)
	}
	header := make([]string, len(templateColumns))
	sample := make([]string, len(templateColumns))
	for i, c := range templateColumns {
		header[i] = c.header
		sample[i] = c.sample(now)
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll([][]string{header, sample}); err != nil {
		return fmt.Errorf("failed to write csv template: %w", err)
	}
	s.logger.Debugw("csv template written", "columns", len(header))
	return nil
}
