// Package app composes the freetime services into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Stores, Application, lifecycle
//	├── domain/             # Idea, Profile, WeeklyPlan, Invitation records
//	├── storage/            # Store interfaces and implementations
//	│   ├── memory/         # In-memory implementation (default, tests)
//	│   ├── postgres/       # PostgreSQL implementation
//	│   └── redisstore/     # Redis implementation
//	├── services/           # One service per entity
//	├── httpapi/            # HTTP routes and handlers
//	├── runtime/            # Config-driven bootstrap and HTTP server
//	├── system/             # Lifecycle manager
//	└── metrics/            # Prometheus collectors
//
// # Dependency Direction
//
//	cmd/freetime/
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi
//	      │                        │
//	      ▼                        ▼
//	internal/app (composition) ──► internal/app/services ──► internal/app/storage
//
// # Adding a New Entity
//
//  1. Create the record in internal/app/domain/<entity>/
//  2. Add the store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/memory, storage/postgres and storage/redisstore
//  4. Create the service in internal/app/services/<entity>/
//  5. Wire the service in internal/app/application.go
//  6. Add handlers in internal/app/httpapi/handler_<entity>.go
package app
