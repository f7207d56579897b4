/*
The sync package implements the per-folder state machine behind `init`, `save`
and `fetch`.

Each managed folder has three locations:
1) The home path -- The path the user works with, e.g. ~/Documents. Once the
   folder is initialized, it's a symlink to the local path.
2) The local path -- Where the folder's contents actually live. It's on fast
   scratch storage that may be wiped by the system between sessions.
3) The remote location -- Durable, network backed storage. Depending on the
   mode, it's either a single archive per folder, or a mirrored directory
   tree.

Init materializes the local path from the remote location (or seeds it from
the home path the first time a folder is managed), and then virtualizes the
home path. Real data found at the home path is never deleted: it's moved to
the folder's backup path before the symlink is created.

Save persists the local path to the remote location.

Fetch restores a single folder from the remote location, but unlike Init it
never touches an existing home path entry.

Operations on different folders touch disjoint paths, so a Synchronizer can be
used from multiple goroutines at once.
*/
package sync
