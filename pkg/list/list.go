// Package list is a doubly linked list whose links can be held by callers and
// removed in O(1). The registry pairs it with a map to keep insertion order.
package list

// List struct.
type List[T any] struct {
	head *Link[T]
	tail *Link[T]
	size int
}

// Create a new list.
func NewList[T any]() *List[T] {
	return &List[T]{}
}

// Get a pointer to the head of the list.
func (list *List[T]) PeekHead() *Link[T] {
	return list.head
}

// Get a pointer to the tail of the list.
func (list *List[T]) PeekTail() *Link[T] {
	return list.tail
}

// Number of links in the list.
func (list *List[T]) Len() int {
	return list.size
}

// Add an element to the start of the list. Returns the added link.
func (list *List[T]) PushHead(value T) *Link[T] {
	link := &Link[T]{list: list, value: value, next: list.head}
	if list.head == nil {
		list.tail = link
	} else {
		list.head.prev = link
	}
	list.head = link
	list.size++
	return link
}

// Add an element to the end of the list. Returns the added link.
func (list *List[T]) PushTail(value T) *Link[T] {
	link := &Link[T]{list: list, value: value, prev: list.tail}
	if list.tail == nil {
		list.head = link
	} else {
		list.tail.next = link
	}
	list.tail = link
	list.size++
	return link
}

// Find the first link for which f is true, or nil.
func (list *List[T]) Find(f func(*Link[T]) bool) *Link[T] {
	for cur := list.head; cur != nil; cur = cur.next {
		if f(cur) {
			return cur
		}
	}
	return nil
}

// Apply a function to every link in order. f must not remove links other
// than the one it is given.
func (list *List[T]) Map(f func(*Link[T])) {
	for cur := list.head; cur != nil; {
		next := cur.next
		f(cur)
		cur = next
	}
}

// Link struct.
type Link[T any] struct {
	list  *List[T]
	prev  *Link[T]
	next  *Link[T]
	value T
}

// Get the list that this link is a part of; nil once popped.
func (link *Link[T]) GetList() *List[T] {
	return link.list
}

// Get the link's value.
func (link *Link[T]) GetKey() T {
	return link.value
}

// Set the link's value.
func (link *Link[T]) SetKey(value T) {
	link.value = value
}

// Get the link's prev.
func (link *Link[T]) GetPrev() *Link[T] {
	return link.prev
}

// Get the link's next.
func (link *Link[T]) GetNext() *Link[T] {
	return link.next
}

// Remove this link from its list. Popping twice is a no-op.
func (link *Link[T]) PopSelf() {
	list := link.list
	if list == nil {
		return
	}
	if list.head == link {
		list.head = link.next
	}
	if list.tail == link {
		list.tail = link.prev
	}
	if link.next != nil {
		link.next.prev = link.prev
	}
	if link.prev != nil {
		link.prev.next = link.next
	}
	link.prev, link.next, link.list = nil, nil, nil
	list.size--
}
