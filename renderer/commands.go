package renderer

import (
	"github.com/vkngwrapper/core/v2/core1_0"
)

func (r *Renderer) createCommandPool() error {
	pool, _, err := r.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: *r.queueIndices.GraphicsFamily,
	})
	if err != nil {
		return initErr(err, "creating command pool")
	}
	r.commandPool = pool

	return nil
}

// createCommandBuffers records one primary command buffer per swapchain
// image: clear, bind the pipeline, draw the three shader-defined
// vertices. Recorded once and replayed unmodified every frame; nothing in
// this design ever requires re-recording.
func (r *Renderer) createCommandBuffers() error {
	buffers, _, err := r.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        r.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: len(r.swapchain.images),
	})
	if err != nil {
		return initErr(err, "allocating command buffers")
	}
	r.commandBuffers = buffers

	clearColor := core1_0.ClearValueFloat{
		r.config.ClearColor.X(),
		r.config.ClearColor.Y(),
		r.config.ClearColor.Z(),
		r.config.ClearColor.W(),
	}

	for bufferIdx, buffer := range buffers {
		_, err = buffer.Begin(core1_0.CommandBufferBeginInfo{})
		if err != nil {
			return initErr(err, "beginning command buffer")
		}

		err = buffer.CmdBeginRenderPass(core1_0.SubpassContentsInline,
			core1_0.RenderPassBeginInfo{
				RenderPass:  r.renderPass,
				Framebuffer: r.framebuffers[bufferIdx],
				RenderArea: core1_0.Rect2D{
					Offset: core1_0.Offset2D{X: 0, Y: 0},
					Extent: r.swapchain.extent,
				},
				ClearValues: []core1_0.ClearValue{clearColor},
			})
		if err != nil {
			return initErr(err, "beginning render pass")
		}

		buffer.CmdBindPipeline(core1_0.PipelineBindPointGraphics, r.graphicsPipeline)
		buffer.CmdDraw(3, 1, 0, 0)
		buffer.CmdEndRenderPass()

		_, err = buffer.End()
		if err != nil {
			return initErr(err, "recording command buffer")
		}
	}

	return nil
}
