package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// rendererPool reuses renderers per Options.
// glamour.TermRenderer is not safe for concurrent Render calls, so renderers
// are checked out of a sync.Pool rather than shared.
type rendererPool struct {
	mu    sync.RWMutex
	pools map[Options]*sync.Pool
}

var globalPool = &rendererPool{
	pools: make(map[Options]*sync.Pool),
}

// getPool returns or creates the pool for opts
func (p *rendererPool) getPool(opts Options) *sync.Pool {
	p.mu.RLock()
	pool, ok := p.pools[opts]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if pool, ok := p.pools[opts]; ok {
		return pool
	}

	pool = &sync.Pool{
		New: func() any {
			renderer, err := createRenderer(opts)
			if err != nil {
				return nil
			}
			return renderer
		},
	}
	p.pools[opts] = pool
	return pool
}

// get checks a renderer out of the pool
func (p *rendererPool) get(opts Options) (*glamour.TermRenderer, error) {
	if r, ok := p.getPool(opts).Get().(*glamour.TermRenderer); ok && r != nil {
		return r, nil
	}
	// The pool's New failed; surface the real error
	return createRenderer(opts)
}

// put returns a renderer to the pool
func (p *rendererPool) put(opts Options, renderer *glamour.TermRenderer) {
	if renderer == nil {
		return
	}
	p.getPool(opts).Put(renderer)
}

// createRenderer creates a new TermRenderer with the specified options
func createRenderer(opts Options) (*glamour.TermRenderer, error) {
	rendererOpts := []glamour.TermRendererOption{
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}

	if opts.Style == StyleMediMate || opts.Style == "" {
		rendererOpts = append(rendererOpts, glamour.WithStyles(MediMateStyle()))
	} else {
		rendererOpts = append(rendererOpts, glamour.WithStylePath(opts.Style))
	}

	if opts.EnableEmoji {
		rendererOpts = append(rendererOpts, glamour.WithEmoji())
	}

	if opts.PreserveNewLines {
		rendererOpts = append(rendererOpts, glamour.WithPreservedNewLines())
	}

	return glamour.NewTermRenderer(rendererOpts...)
}

// ClearCache drops all pooled renderers
func ClearCache() {
	globalPool.mu.Lock()
	globalPool.pools = make(map[Options]*sync.Pool)
	globalPool.mu.Unlock()
}

// CacheSize returns the number of distinct pooled configurations
func CacheSize() int {
	globalPool.mu.RLock()
	defer globalPool.mu.RUnlock()
	return len(globalPool.pools)
}
