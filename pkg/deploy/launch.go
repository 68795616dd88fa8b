package deploy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"codeagent/pkg/exec"
	"codeagent/pkg/utils"
)

// probeTimeout bounds the single liveness request.
const probeTimeout = 5 * time.Second

// LaunchResult describes a server started by Launch.
//
//nolint:govet // JSON field order mirrors the event log
type LaunchResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	PID        int    `json:"pid,omitempty"`
	URL        string `json:"url,omitempty"`
	Reachable  bool   `json:"reachable"`
	ProbeError string `json:"probe_error,omitempty"`
	Output     string `json:"output,omitempty"`
}

// Launch starts prepared.StartCommand in the background, waits the settle
// time and checks the process is still alive. When a URL is known it is probed
// once; an unreachable URL is reported but does not fail the launch. The
// returned process is nil when the launch failed. The caller owns Stop.
func (d *Deployer) Launch(ctx context.Context, prepared *Result) (*exec.Process, *LaunchResult) {
	res := &LaunchResult{URL: prepared.URL}
	defer func() { prepared.Launch = res }()

	if !prepared.Success || prepared.StartCommand == "" {
		res.Message = "Nothing to launch"
		return nil, res
	}

	proc, err := exec.Start(d.dir, prepared.StartCommand)
	if err != nil {
		res.Message = err.Error()
		return nil, res
	}
	res.PID = proc.PID()
	d.logger.Info("🚀 Started %s (pid %d), waiting %s", prepared.StartCommand, res.PID, d.settle)

	timer := time.NewTimer(d.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		proc.Stop()
		res.Message = fmt.Sprintf("Launch cancelled: %v", ctx.Err())
		res.Output = utils.Truncate(proc.Output(), 2000)
		return nil, res
	case <-proc.Done():
		res.Message = fmt.Sprintf("Server process terminated: %v", proc.Err())
		res.Output = utils.Truncate(proc.Output(), 2000)
		return nil, res
	case <-timer.C:
	}

	res.Success = true
	if res.URL == "" {
		res.Message = fmt.Sprintf("%s application is running", prepared.ProjectType)
		return proc, res
	}

	if err := probe(ctx, res.URL); err != nil {
		res.ProbeError = err.Error()
		res.Message = fmt.Sprintf("Application started but %s did not answer yet", res.URL)
		d.logger.Warn("⚠️  %s: %v", res.Message, err)
		return proc, res
	}
	res.Reachable = true
	res.Message = fmt.Sprintf("Application started at %s", res.URL)
	return proc, res
}

func probe(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}
