/*
Package htmlentry loads HTML-entry applications: it fetches a remote HTML
document (or takes an explicit script/style config), inlines its stylesheets
into an embeddable template, and executes its scripts in document order
inside a goja VM against a caller-supplied sandbox global, returning the
entry script's export.

# Loading

	loader, err := htmlentry.New()
	handle, err := loader.LoadHTML(ctx, "https://apps.example.com/widget/index.html")

The handle carries the embedded template and lazy script resolution. Fetched
resources are memoized per location for the cache family's lifetime — a
location is fetched at most once per process, and a failed fetch stays
failed.

# Executing

	sandbox := htmlentry.NewGlobalSandbox()
	export, err := handle.ExecScripts(ctx, sandbox, nil)

Scripts see the sandbox as window, self and globalThis. The entry script's
failure is fatal; any other script's failure is isolated and its siblings
keep running. Async-annotated scripts are fetched eagerly and executed
whenever their text arrives, without blocking later scripts.

The sandbox provides scoping convenience, not a security boundary: a script
can still reach the VM's true globals through any reference the sandbox does
not carry.
*/
package htmlentry
