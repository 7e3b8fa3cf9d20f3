// Package mocks provides gomock implementations of the queue ports in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockTaskStore(ctrl)
//	store.EXPECT().GetByID(gomock.Any(), "task-1").Return(job, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=task_store_mock.go github.com/target/mmk-ce-queue/internal/core TaskStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=task_archiver_mock.go github.com/target/mmk-ce-queue/internal/core TaskArchiver
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=activity_store_mock.go github.com/target/mmk-ce-queue/internal/core ActivityStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=component_repository_mock.go github.com/target/mmk-ce-queue/internal/core ComponentRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/mmk-ce-queue/internal/core CacheRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=pause_state_store_mock.go github.com/target/mmk-ce-queue/internal/core PauseStateStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=worker_registry_mock.go github.com/target/mmk-ce-queue/internal/core WorkerRegistry
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=queue_metrics_mock.go github.com/target/mmk-ce-queue/internal/core QueueMetrics
