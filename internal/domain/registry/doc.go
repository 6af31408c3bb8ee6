// Package registry keeps a library of named component modules that can be
// rendered on demand.
//
// Components:
//   - Manager: module CRUD with an in-memory index and optional JSON
//     persistence in a directory
//   - Seeder: loads module sources (and sidecar manifests) from disk on
//     startup
//
// Storage structure:
//   - Saved modules: {dir}/{module-id}.json
//   - Seed sources: any file under {dir} matching the seed pattern, with an
//     optional {name}.yaml, {name}.yml or {name}.toml manifest next to it
//
// Example usage:
//
//	lib, err := registry.NewManager(registry.Options{Dir: dir})
//	_, err = registry.NewSeeder(lib, dir, logger).Seed(ctx)
//	err = lib.Save(ctx, &registry.Module{ID: "counter", Source: src})
//	mod, err := lib.Load(ctx, "counter")
package registry
