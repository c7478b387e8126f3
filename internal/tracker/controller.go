package tracker

import "sync"

// Controller runs the engine on a dedicated goroutine and exposes the
// start/stop/pause/resume commands the presentation layer issues.
type Controller struct {
	engine  *Engine
	wg      sync.WaitGroup
	started bool
}

func NewController(e *Engine) *Controller {
	return &Controller{engine: e}
}

func (c *Controller) Engine() *Engine {
	return c.engine
}

// Start launches the sampling loop. Calling Start twice is a no-op.
func (c *Controller) Start() {
	if c.started {
		return
	}
	c.started = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.engine.Run()
	}()
}

// Stop requests shutdown, waits for the loop to exit, then closes any
// session left open.
func (c *Controller) Stop() {
	if !c.started {
		return
	}
	c.engine.Stop()
	c.wg.Wait()
	c.engine.Close()
	c.started = false
}

func (c *Controller) Pause() {
	c.engine.Pause()
}

func (c *Controller) Resume() {
	c.engine.Resume()
}
