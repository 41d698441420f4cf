// Package catalog loads authored content into a content.Catalog.
//
// Two authoring formats are accepted:
//
//   - CUE (a directory of .cue files or one file), keyed by id:
//
//     level: foundation: {title: "Foundation"}
//     hack: h1: {level: "foundation", required: true}
//     hack: h2: {level: "foundation", requires: ["h1"]}
//     routine: morning: {steps: ["h1", "h2"]}
//
//   - YAML, decoded strictly (unknown fields are errors), as lists under
//     levels, hacks and routines.
//
// Both go through the same validation. Structural problems (duplicate ids,
// self prerequisites, unknown parents, routine steps that are not hacks)
// fail the load; dangling prerequisites load with a warning because the
// graph treats them as satisfied.
package catalog
