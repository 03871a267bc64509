// Package postgres is the GORM backed databases.Store. Slot reservation takes a
// transaction scoped advisory lock per date, and a partial unique index on live sessions
// rejects a double booked slot even if a caller forgets the lock.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/models"
)

// Store is a databases.Store over PostgreSQL
type Store struct {
	db *gorm.DB
}

var _ databases.Store = (*Store)(nil)

// Open connects to dsn, tunes the pool and migrates the schema
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(zapWriter{zap.S()}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, apperr.Infra(err, "failed to connect to postgres")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperr.Infra(err, "failed to get sql db")
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate creates or updates the tables this store owns
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&counterRow{},
		&caseRow{},
		&sessionRow{},
		&rescheduleRow{},
		&documentationRow{},
		&settlementRow{},
	)
	if err != nil {
		return apperr.Infra(err, "failed to migrate schema")
	}
	return nil
}

// DB exposes the connection for collaborators sharing it, such as the resident directory
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside a database transaction
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx databases.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(g *gorm.DB) error {
		return fn(ctx, &tx{db: g})
	})
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Infra(err, "transaction failed")
}

// Close releases the connection pool
func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type zapWriter struct {
	log *zap.SugaredLogger
}

// Printf only sees slow queries and SQL errors at the configured level
func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Warnf(format, args...)
}

type tx struct {
	db *gorm.DB
}

// classify maps gorm errors onto the error taxonomy
func classify(err error, notFound *apperr.Error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if notFound != nil {
			return notFound
		}
		return apperr.Wrap(apperr.NotFound, err, message)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.Conflict, err, message)
	default:
		return apperr.Infra(err, message)
	}
}

func (t *tx) NextCaseSequence(ctx context.Context, year int) (int64, error) {
	var n int64
	err := t.db.Raw(
		`INSERT INTO case_counters (year, value) VALUES (?, 1)
		 ON CONFLICT (year) DO UPDATE SET value = case_counters.value + 1
		 RETURNING value`, year).Scan(&n).Error
	if err != nil {
		return 0, apperr.Infra(err, "failed to allocate case number")
	}
	return n, nil
}

func (t *tx) InsertCase(ctx context.Context, c *models.Case) error {
	row := toCaseRow(c)
	return classify(t.db.Create(&row).Error, nil, fmt.Sprintf("failed to insert case %d", c.ID))
}

func (t *tx) FindCase(ctx context.Context, id int64) (*models.Case, error) {
	var row caseRow
	if err := t.db.First(&row, "id = ?", id).Error; err != nil {
		return nil, classify(err, apperr.NotFoundf("case %d not found", id), "failed to find case")
	}
	c, err := row.model()
	if err != nil {
		return nil, apperr.Infra(err, fmt.Sprintf("case %d has an unreadable status", id))
	}
	return c, nil
}

func (t *tx) UpdateCase(ctx context.Context, c *models.Case) error {
	row := toCaseRow(c)
	res := t.db.Model(&caseRow{}).Where("id = ?", c.ID).Select("*").Omit("id", "filed_at").Updates(&row)
	if res.Error != nil {
		return classify(res.Error, nil, "failed to update case")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("case %d not found", c.ID)
	}
	return nil
}

// LockDay takes a transaction scoped advisory lock keyed on the date
func (t *tx) LockDay(ctx context.Context, date string) error {
	err := t.db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "slotday:"+date).Error
	if err != nil {
		return apperr.Infra(err, "failed to lock "+date)
	}
	return nil
}

func (t *tx) BookingsOn(ctx context.Context, date string) ([]models.Booking, error) {
	var rows []sessionRow
	if err := t.db.Where("scheduled_date = ?", date).Order("scheduled_minute").Find(&rows).Error; err != nil {
		return nil, apperr.Infra(err, "failed to list sessions on "+date)
	}
	out := make([]models.Booking, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model().Booking())
	}
	return out, nil
}

func (t *tx) FindSession(ctx context.Context, id string) (*models.Session, error) {
	var row sessionRow
	if err := t.db.Unscoped().First(&row, "id = ?", id).Error; err != nil {
		return nil, classify(err, apperr.NotFoundf("session %s not found", id), "failed to find session")
	}
	return row.model(), nil
}

func (t *tx) ActiveSession(ctx context.Context, caseID int64, stage models.Stage) (*models.Session, error) {
	var row sessionRow
	err := t.db.Where("case_id = ? AND stage = ?", caseID, string(stage)).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, classify(err, apperr.NotFoundf("no live %s session for case %d", stage, caseID), "failed to find session")
	}
	return row.model(), nil
}

func (t *tx) InsertSession(ctx context.Context, s *models.Session) error {
	row := toSessionRow(s)
	err := t.db.Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.New(apperr.Conflict, "%s at %s is already booked", s.ScheduledDate, s.ScheduledTime)
	}
	return classify(err, nil, "failed to insert session")
}

func (t *tx) UpdateSessionSlot(ctx context.Context, s *models.Session) error {
	res := t.db.Model(&sessionRow{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
		"scheduled_date":   s.ScheduledDate,
		"scheduled_time":   s.ScheduledTime,
		"scheduled_minute": s.ScheduledMinute,
		"panel":            toSessionRow(s).Panel,
		"updated_at":       s.UpdatedAt,
	})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return apperr.New(apperr.Conflict, "%s at %s is already booked", s.ScheduledDate, s.ScheduledTime)
	}
	if res.Error != nil {
		return classify(res.Error, nil, "failed to update session")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("session %s not found", s.ID)
	}
	return nil
}

func (t *tx) SoftDeleteSessions(ctx context.Context, caseID int64, stage models.Stage, at time.Time) (int64, error) {
	res := t.db.Model(&sessionRow{}).
		Where("case_id = ? AND stage = ?", caseID, string(stage)).
		Updates(map[string]interface{}{"deleted_at": at, "updated_at": at})
	if res.Error != nil {
		return 0, apperr.Infra(res.Error, "failed to delete sessions")
	}
	return res.RowsAffected, nil
}

func (t *tx) PurgeSession(ctx context.Context, id string) error {
	if err := t.db.Where("session_id = ?", id).Delete(&documentationRow{}).Error; err != nil {
		return apperr.Infra(err, "failed to purge documentation")
	}
	if err := t.db.Unscoped().Where("session_id = ?", id).Delete(&rescheduleRow{}).Error; err != nil {
		return apperr.Infra(err, "failed to purge reschedules")
	}
	res := t.db.Unscoped().Where("id = ?", id).Delete(&sessionRow{})
	if res.Error != nil {
		return apperr.Infra(res.Error, "failed to purge session")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("session %s not found", id)
	}
	return nil
}

func (t *tx) Reschedules(ctx context.Context, sessionID string) ([]models.RescheduleRecord, error) {
	var rows []rescheduleRow
	if err := t.db.Where("session_id = ?", sessionID).Order("sequence").Find(&rows).Error; err != nil {
		return nil, apperr.Infra(err, "failed to list reschedules")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	docs, err := t.documentationFor(ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.RescheduleRecord, 0, len(rows))
	for _, r := range rows {
		rec := r.model()
		if d, ok := docs[r.ID]; ok {
			rec.Documentation = d
		}
		out = append(out, rec)
	}
	return out, nil
}

func (t *tx) RescheduleHistory(ctx context.Context, sessionID string) ([]models.RescheduleRecord, error) {
	var rows []rescheduleRow
	if err := t.db.Unscoped().Where("session_id = ?", sessionID).Order("sequence").Find(&rows).Error; err != nil {
		return nil, apperr.Infra(err, "failed to list reschedule history")
	}
	out := make([]models.RescheduleRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (t *tx) documentationFor(rescheduleIDs []string) (map[string][]models.Documentation, error) {
	var rows []documentationRow
	err := t.db.Where("reschedule_id IN ?", rescheduleIDs).Order("uploaded_at").Find(&rows).Error
	if err != nil {
		return nil, apperr.Infra(err, "failed to list documentation")
	}
	out := make(map[string][]models.Documentation, len(rescheduleIDs))
	for _, r := range rows {
		out[r.RescheduleID] = append(out[r.RescheduleID], r.model())
	}
	return out, nil
}

func (t *tx) FindReschedule(ctx context.Context, id string) (*models.RescheduleRecord, error) {
	var row rescheduleRow
	if err := t.db.First(&row, "id = ?", id).Error; err != nil {
		return nil, classify(err, apperr.NotFoundf("reschedule %s not found", id), "failed to find reschedule")
	}
	docs, err := t.documentationFor([]string{id})
	if err != nil {
		return nil, err
	}
	rec := row.model()
	if d, ok := docs[id]; ok {
		rec.Documentation = d
	}
	return &rec, nil
}

func (t *tx) InsertReschedule(ctx context.Context, r *models.RescheduleRecord) error {
	row := toRescheduleRow(r)
	return classify(t.db.Create(&row).Error, nil, "failed to insert reschedule")
}

func (t *tx) UpdateRescheduleMinutes(ctx context.Context, id string, minutes *string) error {
	res := t.db.Model(&rescheduleRow{}).Where("id = ?", id).Update("minutes", minutes)
	if res.Error != nil {
		return apperr.Infra(res.Error, "failed to update minutes")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("reschedule %s not found", id)
	}
	return nil
}

func (t *tx) SoftDeleteReschedule(ctx context.Context, id string, at time.Time) error {
	res := t.db.Model(&rescheduleRow{}).Where("id = ?", id).Update("deleted_at", at)
	if res.Error != nil {
		return apperr.Infra(res.Error, "failed to delete reschedule")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("reschedule %s not found", id)
	}
	return nil
}

func (t *tx) InsertDocumentation(ctx context.Context, docs []models.Documentation) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]documentationRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, documentationRow{
			ID:           d.ID,
			SessionID:    d.SessionID,
			RescheduleID: d.RescheduleID,
			FilePath:     d.FilePath,
			UploadedAt:   d.UploadedAt,
		})
	}
	return classify(t.db.Create(&rows).Error, nil, "failed to insert documentation")
}

func (t *tx) FindSettlement(ctx context.Context, caseID int64) (*models.Settlement, error) {
	var row settlementRow
	if err := t.db.First(&row, "case_id = ?", caseID).Error; err != nil {
		return nil, classify(err, apperr.NotFoundf("no settlement for case %d", caseID), "failed to find settlement")
	}
	return row.model(), nil
}

func (t *tx) InsertSettlement(ctx context.Context, s *models.Settlement) error {
	row := settlementRow{
		ID:         s.ID,
		CaseID:     s.CaseID,
		Type:       string(s.Type),
		SettledOn:  s.SettledOn,
		Agreements: s.Agreements,
		Remarks:    s.Remarks,
		CreatedAt:  s.CreatedAt,
	}
	err := t.db.Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Statef("case %d is already settled", s.CaseID)
	}
	return classify(err, nil, "failed to insert settlement")
}

// Directory reads party contact details from the residents table
type Directory struct {
	db *gorm.DB
}

// NewDirectory returns a resident directory sharing db
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// Lookup returns the residents matching refs. Unknown refs are skipped.
func (d *Directory) Lookup(ctx context.Context, refs []string) ([]models.Resident, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	var rows []residentRow
	if err := d.db.WithContext(ctx).Where("id IN ?", refs).Find(&rows).Error; err != nil {
		return nil, apperr.Infra(err, "failed to find residents")
	}
	out := make([]models.Resident, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Resident{ID: r.ID, Name: r.Name, Email: r.Email})
	}
	return out, nil
}
