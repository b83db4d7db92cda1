// Command galleryctl inspects image folders without running the server.
//
// Usage:
//
//	galleryctl scan <folder>        index a folder and print its records
//	galleryctl tree <path>...       print the folder tree for indexed paths
//	galleryctl layout               compute the grid for a viewport
//
// scan prints a table when stdout is a terminal and JSON otherwise, so its
// output can be piped into other tools. Pass --json to force JSON.
package main
