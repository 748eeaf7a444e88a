package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"fleetwatch/internal/monitor"
)

// ConnectFailedMessage is the snapshot error when the gateway is unreachable.
const ConnectFailedMessage = "Failed to connect to OpenClaw Gateway"

// ListSessions returns every session the gateway knows about.
func (c *Client) ListSessions(ctx context.Context) ([]monitor.Session, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "sessions.list", nil, &raw); err != nil {
		return []monitor.Session{}, err
	}
	return decodeList[monitor.Session](raw, "sessions")
}

// ListAgents returns the registered agents.
func (c *Client) ListAgents(ctx context.Context) ([]monitor.Agent, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "agents.list", nil, &raw); err != nil {
		return []monitor.Agent{}, err
	}
	return decodeList[monitor.Agent](raw, "agents")
}

// ListCronJobs returns the scheduled job definitions.
func (c *Client) ListCronJobs(ctx context.Context) ([]monitor.CronJob, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "cron.list", nil, &raw); err != nil {
		return []monitor.CronJob{}, err
	}
	return decodeList[monitor.CronJob](raw, "jobs")
}

// Fetch polls the gateway for one snapshot. It never fails: an unreachable
// gateway yields a disconnected snapshot, and each list that errors is
// reported empty.
func (c *Client) Fetch(ctx context.Context) monitor.Snapshot {
	snap := monitor.Snapshot{
		Sessions:  []monitor.Session{},
		Agents:    []monitor.Agent{},
		CronJobs:  []monitor.CronJob{},
		Timestamp: time.Now().UnixMilli(),
	}

	if err := c.Connect(ctx); err != nil {
		log.Printf("[Gateway] %v", err)
		snap.Error = ConnectFailedMessage
		return snap
	}
	snap.Connected = true

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s, err := c.ListSessions(ctx)
		if err != nil {
			log.Printf("[Gateway] sessions.list failed: %v", err)
		}
		snap.Sessions = s
	}()
	go func() {
		defer wg.Done()
		a, err := c.ListAgents(ctx)
		if err != nil {
			log.Printf("[Gateway] agents.list failed: %v", err)
		}
		snap.Agents = a
	}()
	go func() {
		defer wg.Done()
		j, err := c.ListCronJobs(ctx)
		if err != nil {
			log.Printf("[Gateway] cron.list failed: %v", err)
		}
		snap.CronJobs = j
	}()
	wg.Wait()

	return snap
}
