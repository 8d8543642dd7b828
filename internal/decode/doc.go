// ABOUTME: Real-time decode output stage
// ABOUTME: Shared audio state, render callback engine and stream lifecycle
// Package decode is the output stage of the decode pipeline. It turns the
// byte fifo of decoded PCM into the fixed-size buffers the audio backend
// requests each hardware cycle.
//
// Two execution contexts touch this package. The backend's real-time
// thread drives Engine.Render, which must complete in bounded time with
// no blocking calls and no allocation. A cooperative worker owns stream
// lifecycle: open, close and the deferred reopen that services mid-stream
// sample-rate changes. The two sides meet at AudioState's single lock and
// at a non-blocking single-slot reconfiguration channel.
package decode
