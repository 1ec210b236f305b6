// Package headless runs an unattended sweep described by a YAML job file.
//
// A job names an action, picks flat chats and project conversations by title
// glob, and optionally scrolls the sidebar to the end first. The executor plans
// the run, refuses plans larger than max_items, and either reports the plan
// (dry_run) or hands it to the bulk runner as one batch. Every run writes
// artifacts for auditing:
//
//   - summary.json: the plan, the run summary and per-item failures
//   - summary.md: the same as a readable report
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│            Headless Executor             │
//	│  - Job config (YAML)                     │
//	│  - Title matchers                        │
//	│  - Plan limit                            │
//	│  - Artifact generation                   │
//	└──────────────────┬──────────────────────┘
//	                   │
//	                   ▼
//	        ┌──────────────────────┐
//	        │ orchestrator         │
//	        │ Controller           │
//	        └──────────────────────┘
//
// Example configuration:
//
//	action: archive
//	delay: 1500ms
//	load_all: true
//	chats:
//	  enabled: true
//	  match: ["*standup*", "untitled*"]
//	  exclude: ["*keep*"]
//	projects:
//	  enabled: true
//	  names: ["Scratch*"]
//	  match: ["*"]
//	max_items: 200
//	dry_run: false
//	artifacts:
//	  enabled: true
//	  output_dir: .chatsweep/artifacts
//	logging:
//	  verbosity: normal
//
// Example usage:
//
//	cfg, err := headless.LoadConfig("job.yaml")
//	if err != nil {
//	    return err
//	}
//	executor, err := headless.NewExecutor(ctrl, cfg)
//	if err != nil {
//	    return err
//	}
//	return executor.Run(ctx)
package headless
