// Package worker 后台异步任务协程池
package worker

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anoixa/image-admin/utils"
)

// Stats 协程池统计
type Stats struct {
	Workers   int   `json:"workers"`
	QueueSize int   `json:"queue_size"`
	Queued    int   `json:"queued"`
	Executed  int64 `json:"executed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Pool 协程池，Stop 会等待已入队的任务执行完毕
type Pool struct {
	workers int
	queue   chan func()
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	executed atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
}

var (
	globalPool *Pool
	globalMu   sync.Mutex
)

// InitGlobalPool 初始化全局协程池
func InitGlobalPool(workers, queueSize int) *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalPool == nil {
		globalPool = NewPool(workers, queueSize)
	}
	return globalPool
}

// GetGlobalPool 获取全局协程池
func GetGlobalPool() *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalPool
}

// StopGlobalPool 停止全局协程池
func StopGlobalPool() {
	globalMu.Lock()
	pool := globalPool
	globalPool = nil
	globalMu.Unlock()

	if pool != nil {
		pool.Stop()
	}
}

// NewPool 创建并启动协程池
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	p := &Pool{
		workers: workers,
		queue:   make(chan func(), queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	log.Printf("[Worker] Pool started with %d workers", workers)
	return p
}

// Submit 提交任务（非阻塞，队列满或已停止时丢弃）
func (p *Pool) Submit(task func()) bool {
	if task == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.dropped.Add(1)
		return false
	}

	select {
	case p.queue <- task:
		return true
	default:
		p.dropped.Add(1)
		log.Println("[Worker] WARN: queue is full, task dropped")
		return false
	}
}

// SubmitBlocking 阻塞提交任务，队列满时最多等待 timeout
func (p *Pool) SubmitBlocking(task func(), timeout time.Duration) bool {
	if task == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.dropped.Add(1)
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case p.queue <- task:
		return true
	case <-timer.C:
		p.dropped.Add(1)
		return false
	}
}

// Stop 停止接收任务并等待队列清空
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	log.Println("[Worker] Pool stopped")
}

// GetStats 当前统计
func (p *Pool) GetStats() Stats {
	return Stats{
		Workers:   p.workers,
		QueueSize: cap(p.queue),
		Queued:    len(p.queue),
		Executed:  p.executed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.execute(task)
	}
}

// execute 执行任务并捕获 panic
func (p *Pool) execute(task func()) {
	defer func() {
		p.executed.Add(1)
		if r := recover(); r != nil {
			p.failed.Add(1)
			log.Printf("[Worker] Panic recovered in async task: %v", r)
		}
	}()
	task()
}

// Submit 提交任务到全局池，未初始化时在独立 goroutine 中执行
func Submit(task func()) bool {
	pool := GetGlobalPool()
	if pool == nil {
		if task == nil {
			return false
		}
		utils.SafeGo("worker.Submit", task)
		return true
	}
	return pool.Submit(task)
}
