// Package platform detects the host operating system and CPU architecture
// and maps them onto formula.Architecture tags.
package platform
