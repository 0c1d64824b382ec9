// Package internal contains the core implementation packages for ocpack.
//
// # Package Organization
//
// The internal packages are organized by pipeline stage:
//
//   - validation: Component name rules
//   - templates: Legacy alias resolution and registry availability checks
//   - npm: npm init and install processes
//   - scaffolding: Creating a component directory from a template
//   - descriptor: Loading and validating package.json manifests
//   - discovery: Finding the components under a root
//   - compiler: Template compilers keyed by compiler id
//   - packager: Compiling components into _package directories
//   - archive: tar.gz compression with a fixed entry prefix
//   - publish: Handing archives to a directory or S3 bucket
//   - watcher: File system monitoring with debouncing
//   - services: Wiring configuration into the stages for the CLI
//
// Ambient packages are errors, logging, config, metrics, tracing and version.
//
// # Inter-Package Communication
//
//   - Scaffolder resolves the template, initializes npm and installs the template
//   - Packager loads a descriptor, resolves its compiler and writes the package
//   - Publisher packages, compresses, hands off and removes the temporary archive
//   - Watcher batches changes and repackages the components they touch
//
// # Security Considerations
//
//   - Component names are validated before any file system access
//   - Only allowlisted package manager binaries are executed
//   - Configuration paths are checked for traversal and shell metacharacters
//
// For detailed documentation, see the individual package documentation.
package internal
