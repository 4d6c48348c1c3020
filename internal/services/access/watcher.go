package access

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/access-gate/internal/lib/sl"
)

// IdentityProvider описывает внешний источник личности: текущая личность
// и подписка на события входа/выхода. Возвращаемая из Subscribe функция
// отменяет подписку; канал закрывается после отмены.
type IdentityProvider interface {
	// Current возвращает текущую личность или nil, если входа не было.
	Current(ctx context.Context) (*Identity, error)
	// Subscribe возвращает канал событий смены личности. Событие nil
	// означает выход из системы.
	Subscribe(ctx context.Context) (<-chan *Identity, func(), error)
}

// resolved связывает решение с поколением личности, для которого оно считалось.
type resolved struct {
	gen      uint64
	decision Decision
}

// Watcher перезапускает конвейер решения на каждую смену личности.
// Каждый запуск помечается номером поколения; результат устаревшего
// запуска отбрасывается, если личность успела смениться — побеждает
// последняя смена, без дебаунса.
type Watcher struct {
	service  *Service
	provider IdentityProvider
	log      *slog.Logger
}

// NewWatcher создает новый экземпляр Watcher.
func NewWatcher(service *Service, provider IdentityProvider, log *slog.Logger) *Watcher {
	return &Watcher{
		service:  service,
		provider: provider,
		log:      log,
	}
}

// Run подписывается на смены личности и отдаёт решения гейта в выходной
// канал. Канал закрывается при завершении ctx или закрытии источника
// событий; после закрытия выходного канала решений не бывает.
func (w *Watcher) Run(ctx context.Context) (<-chan Decision, error) {
	const op = "access.Watcher.Run"

	events, cancel, err := w.provider.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	decisions := make(chan Decision)
	results := make(chan resolved)

	go func() {
		defer cancel()
		defer close(decisions)

		var gen uint64

		launch := func(identity *Identity) {
			gen++
			go w.resolve(ctx, gen, identity, results)
		}

		identity, err := w.provider.Current(ctx)
		if err != nil {
			// Сбой установления личности трактуется как её отсутствие.
			w.log.Warn("identity resolution failed, treating as signed out", sl.Err(err))
			identity = nil
		}
		launch(identity)

		for {
			select {
			case <-ctx.Done():
				return
			case identity, ok := <-events:
				if !ok {
					w.log.Info("identity event stream closed", slog.String("op", op))
					return
				}
				launch(identity)
			case res := <-results:
				if res.gen != gen {
					// Устаревший запуск: личность сменилась, пока он считался.
					continue
				}
				select {
				case decisions <- res.decision:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return decisions, nil
}

func (w *Watcher) resolve(ctx context.Context, gen uint64, identity *Identity, results chan<- resolved) {
	decision := w.service.Resolve(ctx, identity)
	select {
	case results <- resolved{gen: gen, decision: decision}:
	case <-ctx.Done():
	}
}
