package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Контракт долговременного хранилища. Реализации находятся в
// infrastructure/persistence. Документ один на ученика, под фиксированным ключом.
// ══════════════════════════════════════════════════════════════════════════════

// Repository сохраняет и загружает полное состояние.
type Repository interface {
	// Load загружает состояние.
	// Возвращает shared.ErrStateNotFound, если сохранённого состояния нет.
	Load(ctx context.Context) (*State, error)

	// Save перезаписывает состояние целиком (last-writer-wins).
	Save(ctx context.Context, s *State) error

	// Delete удаляет сохранённое состояние.
	Delete(ctx context.Context) error

	// Close освобождает ресурсы хранилища.
	Close() error
}

// VersionedRepository добавляет compare-and-set по ревизии документа
// для хранилищ, к которым могут обращаться несколько процессов.
type VersionedRepository interface {
	Repository

	// LoadVersion загружает состояние вместе с его ревизией.
	LoadVersion(ctx context.Context) (*State, int64, error)

	// Revision возвращает ревизию документа, не декодируя его
	// (0, если документа нет). Нужна, чтобы перезаписать испорченный документ.
	Revision(ctx context.Context) (int64, error)

	// SaveIfVersion сохраняет состояние, только если текущая ревизия равна expected.
	// Возвращает новую ревизию или shared.ErrStaleRevision.
	SaveIfVersion(ctx context.Context, s *State, expected int64) (int64, error)
}

// Snapshot - запись истории сохранений.
type Snapshot struct {
	Revision int64     `json:"revision"`
	SavedAt  time.Time `json:"savedAt"`
	XP       int       `json:"xp"`
	Level    int       `json:"level"`
	Digest   string    `json:"digest"`
}

// HistoryRepository отдаёт историю сохранений (если хранилище её ведёт).
type HistoryRepository interface {
	History(ctx context.Context, limit int) ([]Snapshot, error)
}
