// Package services implements the library's use cases on top of a
// store.Store. Handlers stay thin: decode, call a service, encode.
package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/store"
)

// Pusher delivers a live notification to a connected user.
type Pusher interface {
	Send(userID, content string)
}

// Env is shared by every service.
type Env struct {
	Store  store.Store
	Logger *zap.Logger
	// Loc is the library timezone used for day arithmetic.
	Loc  *time.Location
	Now  func() time.Time
	Push Pusher
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Env) loc() *time.Location {
	if e.Loc == nil {
		return time.UTC
	}
	return e.Loc
}

func (e *Env) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// notify stores a message for userID and pushes it live. Failures are logged
// and never fail the calling operation.
func (e *Env) notify(ctx context.Context, userID, msg string) {
	e.notifyOnce(ctx, userID, "", msg)
}

// notifyOnce is notify for messages that repeated sweeps would otherwise
// send again; key identifies the message for userID.
func (e *Env) notifyOnce(ctx context.Context, userID, key, msg string) {
	created, err := e.Store.CreateNotification(ctx, userID, key, msg)
	if err != nil {
		e.log().Warn("create notification", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if created && e.Push != nil {
		e.Push.Send(userID, msg)
	}
}

func (e *Env) notifyReader(ctx context.Context, readerID, msg string) {
	r, err := e.Store.GetReader(ctx, readerID)
	if err != nil {
		e.log().Warn("notify reader", zap.String("reader_id", readerID), zap.Error(err))
		return
	}
	e.notify(ctx, r.UserID, msg)
}

func (e *Env) readerOf(ctx context.Context, userID string) (*models.Reader, error) {
	r, err := e.Store.GetReaderByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Reader profile not found")
	}
	return r, err
}

func (e *Env) librarianOf(ctx context.Context, userID string) (*models.Librarian, error) {
	l, err := e.Store.GetLibrarianByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Librarian profile not found")
	}
	return l, err
}

func (e *Env) cardOf(ctx context.Context, readerID string) (*models.ReadingCard, error) {
	c, err := e.Store.GetCard(ctx, readerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Reading card not found")
	}
	return c, err
}

func totalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func clampPage(page, size, defSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defSize
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}
