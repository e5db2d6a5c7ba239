package runstore

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    cpu_worker_count INTEGER NOT NULL,
    memory_target_bytes INTEGER NOT NULL,
    run_duration_seconds INTEGER NOT NULL,
    completed BOOLEAN DEFAULT FALSE,
    memory_allocated_bytes INTEGER NOT NULL DEFAULT 0,
    failed_allocations INTEGER NOT NULL DEFAULT 0,
    abandoned_workers INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS worker_outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    idx INTEGER NOT NULL,
    status TEXT NOT NULL,
    requested_bytes INTEGER NOT NULL DEFAULT 0,
    elapsed_ns INTEGER NOT NULL DEFAULT 0,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_worker_outcomes_run_id ON worker_outcomes(run_id);
`
