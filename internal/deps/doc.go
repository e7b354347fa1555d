// Package deps records which objects read which properties of which other
// objects while compiling.
//
// A Store holds the dependency graph: an edge (dependent, dependency, props)
// says that compiling dependent read props of dependency. Dependents are
// items; dependencies are items, layouts, the config or the item and layout
// collections. The graph is loaded from the previous run, edges of objects
// about to be recompiled are forgotten, and the edges recorded while
// compiling them are added back.
//
// A Tracker feeds the Store. It keeps a stack of the objects currently being
// compiled and records an edge from the top of the stack whenever a view
// reports a property read. Null is the tracker used outside compilation.
package deps
