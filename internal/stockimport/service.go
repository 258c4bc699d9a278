package stockimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Service coordinates the import pipeline: parse, map, reconcile, correct,
// commit. The reconciliation phase is read-only against inventory and runs
// entirely on the session's in-memory snapshot.
type Service struct {
	repo     RepositoryPort
	sessions *SessionStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, sessions *SessionStore, logger *slog.Logger) *Service {
	return &Service{repo: repo, sessions: sessions, logger: logger, now: time.Now}
}

// StartInput describes an upload beginning a new import session.
type StartInput struct {
	Filename     string
	File         io.Reader
	SupplierName string
}

// SessionView is the API-facing shape of a session's current state.
type SessionView struct {
	ID              string        `json:"id"`
	SupplierName    string        `json:"supplierName"`
	Headers         []string      `json:"headers"`
	Mapping         ColumnMapping `json:"mapping"`
	TemplateApplied bool          `json:"templateApplied"`
	Rows            []ImportRow   `json:"rows"`
	ValidCount      int           `json:"validCount"`
	ErrorCount      int           `json:"errorCount"`
}

// StartSession parses the upload, maps its columns, classifies every row in
// one pass and stores the result as an interactive session. Reconciliation
// never blocks on row errors; the whole file is always fully classified.
func (s *Service) StartSession(ctx context.Context, input StartInput) (SessionView, error) {
	supplierName := strings.TrimSpace(input.SupplierName)
	if supplierName == "" {
		return SessionView{}, fmt.Errorf("stockimport: supplier name is required")
	}

	file, err := ParseUpload(input.Filename, input.File)
	if err != nil {
		return SessionView{}, err
	}

	snap, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return SessionView{}, err
	}

	session := &Session{
		SupplierName: supplierName,
		File:         file,
		Snapshot:     snap,
	}

	templateApplied := false
	if supplierID, err := s.repo.ResolveSupplier(ctx, supplierName); err == nil {
		session.SupplierID = supplierID
		template, err := s.repo.GetTemplate(ctx, supplierID)
		switch {
		case err == nil:
			session.Mapping = ApplyTemplate(template.Columns, file.Headers)
			templateApplied = true
		case errors.Is(err, ErrTemplateNotFound):
		default:
			return SessionView{}, err
		}
	} else if !errors.Is(err, ErrSupplierNotResolved) {
		return SessionView{}, err
	}
	if session.Mapping == nil {
		session.Mapping = AutoMap(file.Headers)
	}

	session.Rows = classify(file, session.Mapping, snap, supplierName)
	id := s.sessions.Put(session)

	valid, errored := session.Counts()
	s.logger.Info("import session started",
		slog.String("session_id", id),
		slog.String("supplier", supplierName),
		slog.Int("rows", len(session.Rows)),
		slog.Int("valid", valid),
		slog.Int("errors", errored))

	return s.view(session, templateApplied), nil
}

// GetSession returns a session's current rows and counts.
func (s *Service) GetSession(id string) (SessionView, error) {
	var view SessionView
	err := s.sessions.With(id, func(session *Session) error {
		view = s.view(session, false)
		return nil
	})
	return view, err
}

// UpdateMapping replaces the column mapping and reclassifies the whole file.
// This is the one operation that legitimately re-scans every row: changing a
// column assignment invalidates all prior reconciliation.
func (s *Service) UpdateMapping(id string, mapping ColumnMapping) (SessionView, error) {
	for field := range mapping {
		if _, ok := fieldLabels[field]; !ok {
			return SessionView{}, ErrUnknownField
		}
	}
	var view SessionView
	err := s.sessions.With(id, func(session *Session) error {
		session.Mapping = mapping
		session.Rows = classify(session.File, mapping, session.Snapshot, session.SupplierName)
		view = s.view(session, false)
		return nil
	})
	return view, err
}

// EditRow applies a single field correction and re-runs reconciliation for
// that row alone, against the session's fixed snapshot. The edited row is
// also re-checked against earlier accepted rows for an in-file duplicate;
// other rows are deliberately left untouched.
func (s *Service) EditRow(id string, line int, field Field, value string) (ImportRow, error) {
	if _, ok := fieldLabels[field]; !ok {
		return ImportRow{}, ErrUnknownField
	}
	var edited ImportRow
	err := s.sessions.With(id, func(session *Session) error {
		row, ok := session.Rows[line]
		if !ok {
			return ErrRowNotFound
		}
		raw := make(RowValues, len(row.Raw)+1)
		for f, v := range row.Raw {
			raw[f] = v
		}
		raw[field] = value

		reconciled := ReconcileRow(line, raw, session.Snapshot, session.SupplierName)
		if reconciled.Accepted() {
			others := make([]*ImportRow, 0, len(session.Rows))
			for l, other := range session.Rows {
				if l != line {
					others = append(others, other)
				}
			}
			if first, dup := duplicateOfEarlier(reconciled, others); dup {
				reconciled = rejected(reconciled, fmt.Sprintf("duplicate in file: same medicine and batch as line %d", first))
			}
		}
		session.Rows[line] = &reconciled
		edited = reconciled
		return nil
	})
	return edited, err
}

// SaveTemplate records the session's current mapping as the supplier's
// template, overwriting any prior one. This is user-initiated, never a side
// effect of mapping itself.
func (s *Service) SaveTemplate(ctx context.Context, id string) error {
	var supplierName string
	var mapping ColumnMapping
	if err := s.sessions.With(id, func(session *Session) error {
		supplierName = session.SupplierName
		mapping = session.Mapping
		return nil
	}); err != nil {
		return err
	}

	supplierID, err := s.repo.ResolveSupplier(ctx, supplierName)
	if err != nil {
		return err
	}
	if err := s.repo.SaveTemplate(ctx, supplierID, mapping); err != nil {
		return err
	}
	s.logger.Info("mapping template saved",
		slog.String("session_id", id),
		slog.Int64("supplier_id", supplierID))
	return nil
}

// Discard drops an in-progress session. Nothing was observable externally.
func (s *Service) Discard(id string) {
	s.sessions.Delete(id)
}

func (s *Service) view(session *Session, templateApplied bool) SessionView {
	valid, errored := session.Counts()
	return SessionView{
		ID:              session.ID,
		SupplierName:    session.SupplierName,
		Headers:         session.File.Headers,
		Mapping:         session.Mapping,
		TemplateApplied: templateApplied,
		Rows:            session.RowsInOrder(),
		ValidCount:      valid,
		ErrorCount:      errored,
	}
}

// classify runs the per-row reconciler over the whole file, then the
// cross-row duplicate scan. Data rows are numbered from 2; line 1 is the
// header.
func classify(file ParsedFile, mapping ColumnMapping, snap Snapshot, supplierName string) map[int]*ImportRow {
	values := BuildRows(file, mapping)
	ordered := make([]*ImportRow, 0, len(values))
	rows := make(map[int]*ImportRow, len(values))
	for i, rowValues := range values {
		line := i + 2
		row := ReconcileRow(line, rowValues, snap, supplierName)
		ordered = append(ordered, &row)
		rows[line] = &row
	}
	DedupeRows(ordered)
	return rows
}
