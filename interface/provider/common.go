package provider

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/airbusgeo/geodata-ingester/service/log"
	"github.com/cavaliercoder/grab"
)

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v > 1<<30:
		return fmt.Sprintf("%.2fGo", v/(1<<30))
	case v > 1<<20:
		return fmt.Sprintf("%.2fMo", v/(1<<20))
	case v > 1<<10:
		return fmt.Sprintf("%.2fko", v/(1<<10))
	default:
		return fmt.Sprintf("%.2fo", v)
	}
}

// Progress logs the progress of a download every period (in percent)
type Progress struct {
	ctx      context.Context
	prefix   string
	size     int64
	period   float64
	mu       sync.Mutex
	complete int64
	next     float64
	start    time.Time
}

// NewProgress of a download of size bytes (size <= 0 if unknown)
func NewProgress(ctx context.Context, prefix string, size int64, periodPercent float64) *Progress {
	return &Progress{ctx: ctx, prefix: prefix, size: size, period: periodPercent / 100, start: time.Now()}
}

// UpdateDelta adds n bytes to the progress
func (p *Progress) UpdateDelta(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.complete += n
	if p.size <= 0 {
		return
	}
	if progress := float64(p.complete) / float64(p.size); progress >= p.next {
		speed := float64(p.complete) / max(time.Since(p.start).Seconds(), 1)
		log.Logger(p.ctx).Sugar().Debugf("%s: %.2f%% %s/%s (%s/s)", p.prefix, 100*progress, fmtBytes(p.complete), fmtBytes(p.size), fmtBytes(int64(speed)))
		for p.next <= progress {
			p.next += p.period
		}
	}
}

// Complete returns the number of bytes
func (p *Progress) Complete() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.complete
}

// WriteCounter counts the number of bytes written to it. It implements to the io.Writer interface
// and we can pass this into io.TeeReader() which will report progress on each write cycle.
type WriteCounter struct {
	Progress *Progress
}

func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Progress.UpdateDelta(int64(n))
	return n, nil
}

func displayProgress(ctx context.Context, prefix string, resp *grab.Response, progressPeriod float64) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	progress, lastBytes, seconds := 0.0, int64(0), int64(0)
	for {
		select {
		case <-t.C:
			seconds++
			if resp.Progress() > progress {
				log.Logger(ctx).Sugar().Debugf("%s: %.2f%% %s/%s (%s/s)", prefix, 100*resp.Progress(), fmtBytes(resp.BytesComplete()), fmtBytes(resp.Size), fmtBytes((resp.BytesComplete()-lastBytes)/seconds))
				seconds = 0
				progress += progressPeriod
				lastBytes = resp.BytesComplete()
			}

		case <-resp.Done:
			return
		}
	}
}

func checkRedirectAndCopyAuth(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("stopped after 10 redirects")
	}
	if auth, ok := via[0].Header["Authorization"]; ok {
		req.Header.Set("Authorization", auth[0])
	}
	return nil
}

// statusError classifies the error of a download given the http response
// A response with a status is returned as an UpstreamError (temporary on 408, 429 and 5xx)
func statusError(err error, resp *http.Response) error {
	if resp == nil || resp.StatusCode < 300 {
		return service.MakeTemporary(err)
	}
	host := ""
	if resp.Request != nil {
		host = resp.Request.URL.Host
	}
	return service.UpstreamError{Service: host, StatusCode: resp.StatusCode, Body: err.Error()}
}
