package metrics

import (
	"context"
	"runtime"
	"time"

	"imob-crm/internal/logging"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CRMCollector periodically refreshes the pipeline gauges from the database
type CRMCollector struct {
	db       *gorm.DB
	metrics  *Metrics
	interval time.Duration
	stopCh   chan struct{}
}

// NewCRMCollector creates a collector that runs every interval
func NewCRMCollector(db *gorm.DB, interval time.Duration) *CRMCollector {
	return &CRMCollector{
		db:       db,
		metrics:  Get(),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins periodic collection until Stop or ctx is done
func (c *CRMCollector) Start(ctx context.Context) {
	go func() {
		c.collectAll()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collectAll()
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *CRMCollector) Stop() {
	close(c.stopCh)
}

func (c *CRMCollector) collectAll() {
	c.collectPipeline()
	c.collectSystem()
	c.collectDatabase()
}

type groupCount struct {
	Key   string
	Count int64
}

func (c *CRMCollector) collectPipeline() {
	if c.db == nil {
		return
	}
	log := logging.Named("metrics")

	var leads int64
	if err := c.db.Table("leads").Where("deleted_at IS NULL").Count(&leads).Error; err != nil {
		log.Warn("failed to count leads", zap.Error(err))
	} else {
		c.metrics.LeadsTotal.Set(float64(leads))
	}

	var stages []groupCount
	if err := c.db.Table("negotiations").
		Select("stage as key, count(*) as count").
		Where("deleted_at IS NULL").
		Group("stage").
		Scan(&stages).Error; err != nil {
		log.Warn("failed to count negotiations by stage", zap.Error(err))
	} else {
		c.metrics.NegotiationsByStage.Reset()
		for _, s := range stages {
			c.metrics.NegotiationsByStage.WithLabelValues(s.Key).Set(float64(s.Count))
		}
	}

	var statuses []groupCount
	if err := c.db.Table("conversations").
		Select("status as key, count(*) as count").
		Group("status").
		Scan(&statuses).Error; err != nil {
		log.Warn("failed to count conversations", zap.Error(err))
	} else {
		for _, s := range statuses {
			c.metrics.ConversationsTotal.WithLabelValues(s.Key).Set(float64(s.Count))
		}
	}
}

func (c *CRMCollector) collectSystem() {
	c.metrics.GoroutineNum.Set(float64(runtime.NumGoroutine()))
}

func (c *CRMCollector) collectDatabase() {
	if c.db == nil {
		return
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	c.metrics.DBConnectionsActive.Set(float64(stats.InUse))
	c.metrics.DBConnectionsIdle.Set(float64(stats.Idle))
}
