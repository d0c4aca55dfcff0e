package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
)

// chainConfig is what the offscreen texture chain is built for.
type chainConfig struct {
	size    common.Size
	format  rhi.Format
	samples int
	// ssaa is the supersampling scale, or 0 when SSAA is off.
	ssaa float32
}

// frameSize is the size of the main pass, larger than size when SSAA is on.
func (c chainConfig) frameSize() common.Size {
	if c.ssaa > 0 {
		return c.size.Scaled(c.ssaa)
	}
	return c.size
}

// textureChain owns the offscreen targets of a renderer: the result texture, the supersampled or
// multisampled main target, the AA accumulator and the effect ping-pong pair.
type textureChain struct {
	device rhi.Device
	cfg    chainConfig

	texture       rhi.Texture
	ssaaTexture   rhi.Texture
	msaaBuffer    rhi.RenderBuffer
	depth         rhi.RenderBuffer
	target        rhi.RenderTarget
	textureTarget rhi.RenderTarget

	accum       rhi.Texture
	accumValid  bool
	blend       rhi.Texture
	blendTarget rhi.RenderTarget

	effects       [2]rhi.Texture
	effectTargets [2]rhi.RenderTarget
}

func newTextureChain(d rhi.Device) *textureChain {
	return &textureChain{device: d}
}

// update brings the chain to cfg. A pure size change resizes in place unless aaDirty is set; a
// format change or an AA change recreates the affected resources.
func (c *textureChain) update(cfg chainConfig, aaDirty bool) error {
	if c.texture != nil {
		switch {
		case cfg.format != c.cfg.format:
			c.release()
		case aaDirty:
			c.releaseSampling()
			c.releaseAux()
			if cfg.size != c.cfg.size {
				c.texture.Release()
				c.texture = nil
			}
		case cfg.size != c.cfg.size:
			c.cfg = cfg
			if err := c.resize(); err != nil {
				c.release()
				return err
			}
		}
	}
	c.cfg = cfg
	return c.create()
}

func (c *textureChain) create() error {
	var err error
	size, frame := c.cfg.size, c.cfg.frameSize()

	if c.texture == nil {
		if c.texture, err = c.newTexture("scene texture", size); err != nil {
			return err
		}
	}
	color := c.texture
	if c.cfg.ssaa > 0 {
		if c.ssaaTexture == nil {
			if c.ssaaTexture, err = c.newTexture("ssaa texture", frame); err != nil {
				return err
			}
		}
		color = c.ssaaTexture
	}
	if c.depth == nil {
		c.depth, err = c.newRenderBuffer("scene depth", frame, rhi.FormatDepth24Stencil8, c.cfg.samples)
		if err != nil {
			return err
		}
	}
	if c.cfg.samples > 1 && c.msaaBuffer == nil {
		c.msaaBuffer, err = c.newRenderBuffer("msaa color", size, c.cfg.format, c.cfg.samples)
		if err != nil {
			return err
		}
	}
	if c.target == nil {
		desc := rhi.RenderTargetDesc{Label: "scene target", Color: color, Depth: c.depth}
		if c.cfg.samples > 1 {
			desc.ColorBuffer = c.msaaBuffer
		}
		if c.target, err = c.newRenderTarget(desc); err != nil {
			return err
		}
	}
	if c.cfg.ssaa > 0 && c.textureTarget == nil {
		c.textureTarget, err = c.newRenderTarget(rhi.RenderTargetDesc{Label: "ssaa resolve target", Color: c.texture})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *textureChain) resize() error {
	size, frame := c.cfg.size, c.cfg.frameSize()
	resources := []struct {
		r    rhi.Resource
		size common.Size
	}{
		{c.texture, size},
		{c.ssaaTexture, frame},
		{c.depth, frame},
		{c.msaaBuffer, size},
		{c.accum, frame},
		{c.blend, frame},
		{c.effects[0], frame},
		{c.effects[1], frame},
		{c.target, frame},
		{c.textureTarget, size},
		{c.blendTarget, frame},
		{c.effectTargets[0], frame},
		{c.effectTargets[1], frame},
	}
	for _, res := range resources {
		if res.r == nil {
			continue
		}
		res.r.SetPixelSize(res.size)
		if err := res.r.Build(); err != nil {
			return fmt.Errorf("renderer: failed to resize texture chain: %w", err)
		}
	}
	c.accumValid = false
	return nil
}

// ensureAccumulator creates the AA history texture and the blend target on first use.
func (c *textureChain) ensureAccumulator() error {
	if c.accum != nil {
		return nil
	}
	var err error
	frame := c.cfg.frameSize()
	if c.accum, err = c.newTexture("aa accumulator", frame); err != nil {
		return err
	}
	if c.blend, err = c.newTexture("aa blend", frame); err != nil {
		return err
	}
	c.blendTarget, err = c.newRenderTarget(rhi.RenderTargetDesc{Label: "aa blend target", Color: c.blend})
	c.accumValid = false
	return err
}

// ensureEffectTargets creates the effect ping-pong pair on first use.
func (c *textureChain) ensureEffectTargets() error {
	if c.effects[0] != nil {
		return nil
	}
	frame := c.cfg.frameSize()
	for i, label := range []string{"effect ping", "effect pong"} {
		tex, err := c.newTexture(label, frame)
		if err != nil {
			return err
		}
		c.effects[i] = tex
		if c.effectTargets[i], err = c.newRenderTarget(rhi.RenderTargetDesc{Label: label + " target", Color: tex}); err != nil {
			return err
		}
	}
	return nil
}

func (c *textureChain) newTexture(label string, size common.Size) (rhi.Texture, error) {
	t, err := c.device.NewTexture(rhi.TextureDesc{Label: label, Size: size, Format: c.cfg.format})
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to create %s: %w", label, err)
	}
	if err := t.Build(); err != nil {
		return nil, fmt.Errorf("renderer: failed to build %s: %w", label, err)
	}
	return t, nil
}

func (c *textureChain) newRenderBuffer(label string, size common.Size, format rhi.Format, samples int) (rhi.RenderBuffer, error) {
	b, err := c.device.NewRenderBuffer(rhi.RenderBufferDesc{Label: label, Size: size, Format: format, SampleCount: max(1, samples)})
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to create %s: %w", label, err)
	}
	if err := b.Build(); err != nil {
		return nil, fmt.Errorf("renderer: failed to build %s: %w", label, err)
	}
	return b, nil
}

func (c *textureChain) newRenderTarget(desc rhi.RenderTargetDesc) (rhi.RenderTarget, error) {
	rt, err := c.device.NewRenderTarget(desc)
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to create %s: %w", desc.Label, err)
	}
	if err := rt.Build(); err != nil {
		return nil, fmt.Errorf("renderer: failed to build %s: %w", desc.Label, err)
	}
	return rt, nil
}

// releaseSampling releases everything whose layout depends on the AA mode.
func (c *textureChain) releaseSampling() {
	releaseAll(c.target, c.textureTarget, c.ssaaTexture, c.msaaBuffer, c.depth)
	c.target, c.textureTarget, c.ssaaTexture, c.msaaBuffer, c.depth = nil, nil, nil, nil, nil
}

// releaseAux releases the accumulator and effect targets, which are sized by the main pass.
func (c *textureChain) releaseAux() {
	releaseAll(c.blendTarget, c.blend, c.accum, c.effectTargets[0], c.effectTargets[1], c.effects[0], c.effects[1])
	c.blendTarget, c.blend, c.accum = nil, nil, nil
	c.effectTargets, c.effects = [2]rhi.RenderTarget{}, [2]rhi.Texture{}
	c.accumValid = false
}

func (c *textureChain) release() {
	c.releaseSampling()
	c.releaseAux()
	if c.texture != nil {
		c.texture.Release()
		c.texture = nil
	}
	c.cfg = chainConfig{}
}

func releaseAll(resources ...rhi.Resource) {
	for _, r := range resources {
		if r != nil {
			r.Release()
		}
	}
}
