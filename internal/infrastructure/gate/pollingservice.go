package gate

import (
	"context"
	"sync"
	"time"

	appgate "github.com/tonpass-inc/tonpass/internal/application/access/gate"
	"github.com/tonpass-inc/tonpass/internal/shared/goroutine"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// defaultWorkerCount is the number of concurrent workers for processing
// updates. Updates are dispatched to workers by subject affinity
// (subjectID % workerCount) so same-subject ordering holds while different
// subjects proceed concurrently.
const defaultWorkerCount = 4

// OffsetStore persists polling offset across restarts.
type OffsetStore interface {
	GetOffset(ctx context.Context) (int64, error)
	SaveOffset(ctx context.Context, offset int64) error
}

// UpdateHandler defines the interface for handling gate updates
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update appgate.Update) error
}

// PollingService long-polls the gate's event stream and dispatches updates
type PollingService struct {
	gateService        appgate.Gate
	handler            UpdateHandler
	offsetStore        OffsetStore // nil = in-memory only
	pollTimeout        time.Duration
	stopChan           chan struct{}
	cancelFunc         context.CancelFunc
	wg                 sync.WaitGroup
	lastUpdateID       int64
	processedWatermark int64 // highest update ID processed in this session
	workerCount        int
	isRunning          bool
	runningMu          sync.Mutex
	logger             logger.Interface
}

// NewPollingService creates a new polling service.
// offsetStore is optional; pass nil to keep the offset in memory only.
func NewPollingService(
	gateService appgate.Gate,
	handler UpdateHandler,
	pollTimeout time.Duration,
	offsetStore OffsetStore,
	logger logger.Interface,
) *PollingService {
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &PollingService{
		gateService: gateService,
		handler:     handler,
		offsetStore: offsetStore,
		pollTimeout: pollTimeout,
		stopChan:    make(chan struct{}),
		workerCount: defaultWorkerCount,
		logger:      logger,
	}
}

// Start begins polling for updates
func (s *PollingService) Start(ctx context.Context) error {
	s.runningMu.Lock()
	if s.isRunning {
		s.runningMu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.runningMu.Unlock()

	if s.offsetStore != nil {
		saved, err := s.offsetStore.GetOffset(ctx)
		if err != nil {
			s.logger.Warnw("failed to load polling offset, starting from 0", "error", err)
		} else if saved > 0 {
			s.lastUpdateID = saved
			s.processedWatermark = saved
			s.logger.Infow("loaded polling offset from store", "offset", saved)
		}
	}

	s.logger.Infow("starting gate polling service",
		"timeout", s.pollTimeout,
		"workers", s.workerCount,
	)

	s.wg.Add(1)
	goroutine.SafeGo(s.logger, "gate-poll-loop", func() {
		s.pollLoop(pollCtx)
	})

	return nil
}

// Stop stops the polling service
func (s *PollingService) Stop() {
	s.runningMu.Lock()
	if !s.isRunning {
		s.runningMu.Unlock()
		return
	}
	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.runningMu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.logger.Infow("gate polling service stopped")
}

func (s *PollingService) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("polling stopped due to context cancellation")
			return
		case <-s.stopChan:
			s.logger.Infow("polling stopped by stop signal")
			return
		default:
			s.poll(ctx)
		}
	}
}

func (s *PollingService) poll(ctx context.Context) {
	offset := int64(0)
	if s.lastUpdateID > 0 {
		offset = s.lastUpdateID + 1
	}

	updates, err := s.gateService.GetUpdates(ctx, offset, s.pollTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Errorw("failed to get gate updates", "error", err)
		// Back off before retrying so a broken endpoint is not hammered
		select {
		case <-ctx.Done():
		case <-s.stopChan:
		case <-time.After(5 * time.Second):
		}
		return
	}

	if len(updates) == 0 {
		return
	}

	// Dedup: skip updates already processed (watermark safety net for
	// restart overlap)
	filtered := updates[:0]
	for _, u := range updates {
		if u.ID > s.processedWatermark {
			filtered = append(filtered, u)
		}
	}
	if len(filtered) == 0 {
		for _, u := range updates {
			if u.ID > s.lastUpdateID {
				s.lastUpdateID = u.ID
			}
		}
		return
	}

	// Dispatch updates to worker buckets by subject affinity
	buckets := make([][]appgate.Update, s.workerCount)
	var maxUpdateID int64
	for _, u := range filtered {
		idx := s.subjectAffinity(u)
		buckets[idx] = append(buckets[idx], u)
		if u.ID > maxUpdateID {
			maxUpdateID = u.ID
		}
	}

	var batchWg sync.WaitGroup
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		batchWg.Add(1)
		workerBucket := bucket
		goroutine.SafeGo(s.logger, "gate-poll-worker", func() {
			defer batchWg.Done()
			for _, update := range workerBucket {
				if err := s.handler.HandleUpdate(ctx, update); err != nil {
					s.logger.Errorw("failed to handle gate update",
						"update_id", update.ID,
						"error", err,
					)
				}
			}
		})
	}
	batchWg.Wait()

	if maxUpdateID > s.lastUpdateID {
		s.lastUpdateID = maxUpdateID
	}
	if maxUpdateID > s.processedWatermark {
		s.processedWatermark = maxUpdateID
	}

	if s.offsetStore != nil {
		if err := s.offsetStore.SaveOffset(ctx, s.lastUpdateID); err != nil {
			s.logger.Warnw("failed to save polling offset", "error", err)
		}
	}
}

// subjectAffinity maps an update to a worker bucket by subject ID
func (s *PollingService) subjectAffinity(u appgate.Update) int {
	var subjectID int64
	switch {
	case u.JoinRequest != nil:
		subjectID = u.JoinRequest.SubjectID
	case u.Message != nil:
		subjectID = u.Message.SubjectID
	default:
		return int(u.ID % int64(s.workerCount))
	}
	if subjectID < 0 {
		subjectID = -subjectID
	}
	return int(subjectID % int64(s.workerCount))
}
