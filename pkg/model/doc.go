// Package model defines the field descriptor tables that drive template
// rendering, JSON export, and request binding. A descriptor is built once
// per application type with the fluent Describe builder and registered at
// startup; there is no runtime reflection over struct fields. Each field
// carries visibility tags (Private, SendOnly, ReceiveOnly, IsURL), binding
// constraints (Required, MinLength, Regex, ...), and explicit get/set
// accessors. The IsSendable and IsReceivable predicates on Field are the
// single source of truth for what crosses the client boundary: the HTML
// renderer, the JSON serializer, and the binder all consult them and
// nothing else.
package model
