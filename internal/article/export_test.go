package article

var ResolveBackoff = resolveBackoff
