package reactive

type link struct {
	dep     *Dep
	sub     *ReactiveEffect
	prevSub *link
	nextSub *link
}

// Dep is the set of effects interested in one observable slot. Members keep the
// order in which they were first tracked. The zero value is an empty set.
type Dep struct {
	subs, subsTail *link
	size           int

	// set for Deps owned by the registry
	reg         *registry
	target, key any
}

func (d *Dep) Len() int {
	if d == nil {
		return 0
	}
	return d.size
}

// Has reports whether sub is currently a member.
func (d *Dep) Has(sub *ReactiveEffect) bool {
	if d == nil {
		return false
	}
	for l := d.subs; l != nil; l = l.nextSub {
		if l.sub == sub {
			return true
		}
	}
	return false
}

// Subscribers returns the members in tracking order.
func (d *Dep) Subscribers() []*ReactiveEffect {
	if d == nil {
		return nil
	}
	subs := make([]*ReactiveEffect, 0, d.size)
	for l := d.subs; l != nil; l = l.nextSub {
		subs = append(subs, l.sub)
	}
	return subs
}

func (d *Dep) link(sub *ReactiveEffect) *link {
	l := &link{
		dep:     d,
		sub:     sub,
		prevSub: d.subsTail,
	}
	if d.subsTail != nil {
		d.subsTail.nextSub = l
	} else {
		d.subs = l
	}
	d.subsTail = l
	d.size++
	return l
}

// unlink is idempotent, a link already removed is ignored.
func (d *Dep) unlink(l *link) {
	if d == nil || l.dep != d {
		return
	}
	if l.prevSub != nil {
		l.prevSub.nextSub = l.nextSub
	} else {
		d.subs = l.nextSub
	}
	if l.nextSub != nil {
		l.nextSub.prevSub = l.prevSub
	} else {
		d.subsTail = l.prevSub
	}
	l.dep = nil
	l.prevSub = nil
	l.nextSub = nil
	d.size--
	if d.size == 0 && d.reg != nil {
		d.reg.release(d)
	}
}

func (d *Dep) snapshot() []*link {
	if d.size == 0 {
		return nil
	}
	links := make([]*link, 0, d.size)
	for l := d.subs; l != nil; l = l.nextSub {
		links = append(links, l)
	}
	return links
}
