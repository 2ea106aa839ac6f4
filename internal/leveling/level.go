package leveling

// XPForLevel is the XP required to pass through level n.
func XPForLevel(n int) int {
	return 5*n*n + 50*n + 100
}

// LevelFromXP is the cumulative inverse of XPForLevel.
func LevelFromXP(xp int) int {
	level := 0
	for xp >= XPForLevel(level) {
		xp -= XPForLevel(level)
		level++
	}
	return level
}

// Progress returns how far into the current level the XP sits and how
// much the level requires in total. Never exceeds the requirement.
func Progress(xp int) (into, required int) {
	level := 0
	for xp >= XPForLevel(level) {
		xp -= XPForLevel(level)
		level++
	}
	return xp, XPForLevel(level)
}
