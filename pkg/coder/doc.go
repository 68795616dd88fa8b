// Package coder implements the coding agent that turns a free-text project
// description into a working repository.
//
// # Phases
//
// A CodeAgent moves one project through these phases:
//
//	described -> planned -> structured -> task_executing* -> reviewed -> deployed / editor_opened
//
// Every phase is an explicit method call. Interactive callers may run them in
// any order; phases that depend on an earlier one (SetupProject needs a plan,
// ExecuteTask needs the project directory) say so in their result instead of
// failing hard. ReviewCode falls back to the working directory when no project
// exists yet.
//
// # Task execution
//
// ExecuteTask runs one task end to end:
//
//  1. create and check out feature/<task-name> (failure is only reported)
//  2. ask the generator for an execution plan of commands and file changes
//  3. run every command, then generate every file, strictly in order with no
//     rollback when one of them fails
//  4. commit everything with a bounded commit
//  5. save project_state.json
//  6. synthesize README.md the first time none exists and commit it separately
//
// Errors inside a task become TaskResult.Error. OneShot keeps going with the
// next task.
//
// # Side channels
//
// Every command and generated file is copied to the Markdown session log, the
// optional sqlite audit store and the Prometheus recorder through the runner
// and materializer sinks.
package coder
