package detect

// maxAddLag is the widest gap, in code bytes, between a recorded add and
// the current pc before the loop stops looking like a bare copy. A copy
// loop's add is trailed only by pop and the back edge; once the pc has
// moved further than this past the add while the loop is still open,
// other work is happening between adds and the loop is discarded.
const maxAddLag = 5

// loopInfo tracks one candidate copy loop from its conditional branch at
// start to its exit target at end. addPC moves through three states:
// 0 until an add is seen, then the pc of the single qualifying add, then
// -1 permanently once a second add shows the loop does more than copy.
type loopInfo struct {
	start int
	end   int
	addPC int
}

func (l *loopInfo) isInLoop(pc int) bool {
	return pc >= l.start && pc <= l.end
}

func (l *loopInfo) foundAdd(pc int) {
	if l.addPC == 0 {
		l.addPC = pc
	} else {
		l.addPC = -1
	}
}
