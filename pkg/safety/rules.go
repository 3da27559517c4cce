package safety

// builtinRules is the fixed deny table. These rules hold under every trust
// setting, including risk mode.
var builtinRules = []Rule{
	{
		Pattern:   `\brm\s+(?:-[a-zA-Z]+\s+)*-[a-zA-Z]*[rRf][a-zA-Z]*\s+(?:/|/\*|~|~/|\$HOME)(?:\s|$)`,
		Category:  CategoryFilesystemDestruction,
		Rationale: "recursive removal of the filesystem root or the home directory",
	},
	{
		Pattern:   `\bmv\s+(?:/|~|\$HOME)\s+/dev/null\b`,
		Category:  CategoryFilesystemDestruction,
		Rationale: "moving root or home into /dev/null",
	},
	{
		Pattern:   `\bdd\s+[^|;]*\bof=/dev/(?:sd|hd|vd|nvme|mmcblk)`,
		Category:  CategoryRawDeviceWrite,
		Rationale: "writing directly to a block device destroys its contents",
	},
	{
		Pattern:   `>\s*/dev/(?:sd|hd|vd|nvme|mmcblk)`,
		Category:  CategoryRawDeviceWrite,
		Rationale: "redirecting output onto a block device",
	},
	{
		Pattern:   `\bmkfs(?:\.[a-z0-9]+)?\s`,
		Category:  CategoryPartitionFormat,
		Rationale: "formatting a filesystem wipes the target partition",
	},
	{
		Pattern:   `\b(?:fdisk|parted|sgdisk)\s+[^|;]*/dev/`,
		Category:  CategoryPartitionFormat,
		Rationale: "repartitioning a disk device",
	},
	{
		Pattern:   `\b(?:curl|wget)\b[^|;]*\|\s*(?:sudo\s+)?(?:bash|sh|zsh|fish|dash)\b`,
		Category:  CategoryPipeToShell,
		Rationale: "piping a remote download into a shell executes unreviewed code",
	},
	{
		Pattern:   `\beval\s+[^|;]*\$\(`,
		Category:  CategoryCommandSubstitution,
		Rationale: "eval over a command substitution executes arbitrary generated text",
	},
	{
		Pattern:   `\$\(\s*(?:curl|wget)\b`,
		Category:  CategoryCommandSubstitution,
		Rationale: "substituting a remote download into the command line",
	},
	{
		Pattern:   `\bchmod\s+(?:-[a-zA-Z]+\s+)*(?:a\+rwx|0?777)\s+(?:/|/\*)(?:\s|$)`,
		Category:  CategoryPermissionChange,
		Rationale: "making the filesystem root world-writable",
	},
	{
		Pattern:   `\bchown\s+(?:-[a-zA-Z]+\s+)*root(?::[a-zA-Z0-9_]+)?\s+(?:/|/\*)(?:\s|$)`,
		Category:  CategoryPermissionChange,
		Rationale: "reassigning root ownership over the filesystem root",
	},
	{
		Pattern:   `>{1,2}\s*/(?:etc|boot|sys|proc)/`,
		Category:  CategorySystemConfigWrite,
		Rationale: "redirecting output into system configuration directories",
	},
	{
		Pattern:   `\b(?:mv|cp)\s+[^|;]*\s/(?:etc|boot)/`,
		Category:  CategorySystemConfigWrite,
		Rationale: "overwriting files under system configuration directories",
	},
	{
		Pattern:   `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
		Category:  CategoryForkBomb,
		Rationale: "classic fork bomb syntax",
	},
}
