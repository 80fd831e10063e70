package manager

import (
	"sort"
	"time"

	"frequency/pkg/types"
)

// Status builds a detailed status response for /v1/status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	resp := types.StatusResponse{
		State:     string(m.state),
		LastError: m.err,
	}
	handles := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	m.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i].Name < handles[j].Name })
	resp.Models = make([]types.LoadedModelStatus, 0, len(handles))
	for _, h := range handles {
		resp.Models = append(resp.Models, h.status())
	}
	now := time.Now()
	resp.UptimeSeconds = int64(now.Sub(m.startTime).Seconds())
	resp.ServerTimeUnix = now.Unix()
	resp.LoadsTotal = m.loads.Load()
	resp.GenerationsTotal = m.generations.Load()
	return resp
}
