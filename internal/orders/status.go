package orders

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusCanceled Status = "CANCELED"
)

var validNext = map[Status]map[Status]bool{
	StatusActive:   {StatusCanceled: true},
	StatusCanceled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
