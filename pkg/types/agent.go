// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Sex is the recorded sex of a simulated resident.
type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
)

// Education is the highest education level an agent has completed.
type Education int

const (
	EducationNone Education = iota
	EducationHighSchool
	EducationSomeCollege
	EducationBachelors
	EducationGraduate
)

var educationNames = [...]string{"none", "high_school", "some_college", "bachelors", "graduate"}

// String returns the snake_case name of the education level.
func (e Education) String() string {
	if e < 0 || int(e) >= len(educationNames) {
		return fmt.Sprintf("education(%d)", int(e))
	}
	return educationNames[e]
}

// Attributes is the demographic and economic bundle sampled for an agent
// at creation. It is not modified after synthesis.
type Attributes struct {
	// Occupation is the agent's occupation class (e.g. "service", "professional").
	Occupation string `json:"occupation" yaml:"occupation"`

	Sex  Sex    `json:"sex" yaml:"sex"`
	Race string `json:"race" yaml:"race"`

	// Neighborhood is where the agent rents a home.
	Neighborhood string `json:"neighborhood" yaml:"neighborhood"`

	Education Education `json:"education" yaml:"education"`

	// Rent is the monthly rent in reference-year dollars.
	Rent float64 `json:"rent" yaml:"rent"`

	Age       int `json:"age" yaml:"age"`
	BirthYear int `json:"birth_year" yaml:"birth_year"`
}

// Agent is one simulated resident.
type Agent struct {
	// ID is the agent's index in its Population. It never changes.
	ID int `json:"id" yaml:"id"`

	Name       string     `json:"name" yaml:"name"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`

	// Friends holds the population indices of this agent's social
	// neighbors in ascending order. The Population owns the agents these
	// indices refer to; an agent never lists its own ID.
	Friends []int `json:"friends" yaml:"friends"`
}

// String returns "name (id)".
func (a *Agent) String() string {
	return fmt.Sprintf("%s (%d)", a.Name, a.ID)
}

// Population is the index-stable collection of all agents in a run.
// Population[i].ID == i for every i.
type Population []*Agent

// FriendsOf resolves the friend indices of agent i to agents in p.
func (p Population) FriendsOf(i int) []*Agent {
	if i < 0 || i >= len(p) {
		return nil
	}
	friends := make([]*Agent, 0, len(p[i].Friends))
	for _, j := range p[i].Friends {
		friends = append(friends, p[j])
	}
	return friends
}

// FriendshipCount returns the number of undirected friendships in p,
// counting each pair once.
func (p Population) FriendshipCount() int {
	total := 0
	for _, a := range p {
		total += len(a.Friends)
	}
	return total / 2
}
