// Package diarization defines the provider interface and common types
// for speaker diarization backends.
//
// Backends are pluggable through a registry and selectable at runtime:
//
//   - diarization/pyannote: HTTP sidecar running a pretrained pyannote pipeline
//   - diarization/script: subprocess wrapper around a local diarization script
//
// # Usage
//
//	reg := diarization.NewRegistry()
//	reg.RegisterFactory(pyannote.ProviderName, pyannote.Factory())
//
//	p, err := reg.Create(pyannote.ProviderName, cfg)
//	resp, err := p.Diarize(ctx, diarization.Request{AudioPath: path})
package diarization
