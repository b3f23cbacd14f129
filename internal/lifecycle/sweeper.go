// Package lifecycle переводит аукционы по статусам по расписанию.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	defaultServiceTimeout         = 3 * time.Second
	defaultAdvanceTimeout         = 10 * time.Second
	defaultLimitPerIteration uint = 100
	defaultWorkers           uint = 4
	defaultInterval               = time.Second
)

// Sweeper периодически находит аукционы, которым пора сменить статус или рассчитаться с продавцом, и
// продвигает их.
type Sweeper struct {
	svs               Servicer
	l                 *logrus.Entry
	limitPerIteration uint
	workers           uint
	interval          time.Duration

	// cursor id последнего аукциона предыдущей страницы. Ноль означает начало нового круга.
	cursor int64
}

func New(svs Servicer, l *logrus.Logger) *Sweeper {
	loggerEntry := l.WithFields(logrus.Fields{
		"component": "lifecycle",
		"module":    "sweeper",
	})

	return &Sweeper{
		svs:               svs,
		l:                 loggerEntry,
		limitPerIteration: defaultLimitPerIteration,
		workers:           defaultWorkers,
		interval:          defaultInterval,
	}
}

// SetLimitPerIteration устанавливает кол-во аукционов, обрабатываемых в одной итерации.
func (s *Sweeper) SetLimitPerIteration(limit uint) *Sweeper {
	if limit > 0 {
		s.limitPerIteration = limit
	}
	return s
}

// SetWorkers устанавливает кол-во воркеров.
func (s *Sweeper) SetWorkers(workers uint) *Sweeper {
	if workers > 0 {
		s.workers = workers
	}
	return s
}

// SetInterval устанавливает паузу между итерациями.
func (s *Sweeper) SetInterval(interval time.Duration) *Sweeper {
	if interval > 0 {
		s.interval = interval
	}
	return s
}

// Run обрабатывает аукционы до отмены контекста.
//
// Алгоритм работы:
//  1. В каждой итерации запрашивает через сервисный слой id аукционов, которым пора сменить статус. Объем списка
//     лимитируется через SetLimitPerIteration.
//  2. Аукционы раздаются N воркерам (SetWorkers), каждый вызывает Advance.
//  3. Список запрашивается страницами по возрастанию id. Пока круг не пройден, следующая страница
//     запрашивается сразу. После последней страницы круг начинается заново после паузы SetInterval, поэтому
//     аукционы, которые раз за разом не удается продвинуть, не мешают остальным и не крутят цикл вхолостую.
func (s *Sweeper) Run(ctx context.Context) {
	s.l.WithFields(logrus.Fields{
		"limitPerIteration": s.limitPerIteration,
		"workers":           s.workers,
		"interval":          s.interval,
	}).Info("Starting")

	for {
		_, err := s.sweep(ctx)
		if err != nil && !errors.Is(err, ErrNoAuctions) && ctx.Err() == nil {
			s.l.WithError(err).Error("sweep error")
		}

		pause := s.interval
		if err == nil && s.cursor != 0 {
			pause = 0
		}
		select {
		case <-ctx.Done():
			s.l.Info("Got stop signal, exiting...")
			return
		case <-time.After(pause):
		}
	}
}

// sweep обрабатывает одну страницу и возвращает кол-во успешно продвинутых аукционов. Возвращает
// ErrNoAuctions, если на странице ничего нет.
func (s *Sweeper) sweep(ctx context.Context) (int, error) {
	ids, err := s.produce(ctx)
	if errors.Is(err, ErrNoAuctions) {
		s.cursor = 0
	}
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	if uint(len(ids)) < s.limitPerIteration {
		s.cursor = 0
	} else {
		s.cursor = ids[len(ids)-1]
	}

	var advanced int
	for _, result := range s.runWorkers(ctx, ids) {
		l := s.l.WithFields(logrus.Fields{
			"worker":    result.WorkerID,
			"auctionID": result.AuctionID,
		})
		if result.Error != nil {
			l.WithError(result.Error).Error("advance auction")
			continue
		}
		advanced++
		l.WithFields(logrus.Fields{
			"status":     result.Auction.Status,
			"settlement": result.Auction.Settlement,
		}).Info("Advanced")
	}
	return advanced, nil
}

// workerResult результат продвижения одного аукциона.
type workerResult struct {
	WorkerID  uint
	AuctionID int64
	Auction   *domain.Auction
	Error     error
}

// runWorkers раздает аукционы воркерам и ждет окончания их работы (fan-out/fan-in).
func (s *Sweeper) runWorkers(ctx context.Context, ids []int64) []workerResult {
	var taskCh = make(chan int64, len(ids))
	for _, id := range ids {
		taskCh <- id
	}
	close(taskCh)

	var resultCh = make(chan workerResult, len(ids))

	wg := new(sync.WaitGroup)
	for i := range min(s.workers, uint(len(ids))) {
		wg.Add(1)
		go s.worker(ctx, wg, i+1, taskCh, resultCh)
	}
	wg.Wait()
	close(resultCh)

	var results = make([]workerResult, 0, len(ids))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

func (s *Sweeper) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	taskCh <-chan int64,
	resultCh chan<- workerResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-taskCh:
			if !ok {
				return
			}
			advCtx, cancel := context.WithTimeout(ctx, defaultAdvanceTimeout)
			auction, err := s.svs.Advance(advCtx, id)
			cancel()
			resultCh <- workerResult{WorkerID: workerID, AuctionID: id, Auction: auction, Error: err}
		}
	}
}

// produce получает страницу id аукционов после курсора. Возвращает ErrNoAuctions, если их нет.
func (s *Sweeper) produce(ctx context.Context) ([]int64, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	ids, err := s.svs.DueForSweep(produceCtx, s.cursor, s.limitPerIteration)
	if err != nil {
		return nil, fmt.Errorf("produce: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoAuctions
	}
	return ids, nil
}
