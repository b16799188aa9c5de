// package tasks implements long-running library sync operations.
//
// The core abstraction is SyncEngine, which orchestrates full library
// refreshes and live realtime watching across the song and playlist
// domains. Operations emit progress updates via channels for non-blocking
// status reporting to CLI/UI layers.
package tasks
