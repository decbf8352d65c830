// Package tasks is a small task tracker served through reqgraph. It shows a
// typed request context built from a bearer token, an in-memory store shared
// by every request, and resolvers reporting each error kind.
package tasks

import (
	schema "github.com/hanpama/reqgraph/internal/schema"
)

// SDL is the schema of the task tracker.
const SDL = `"""
An instant in time, formatted as RFC 3339.
"""
scalar Time

enum Role {
  ADMIN
  MEMBER
}

enum Status {
  OPEN
  DONE
}

interface Node {
  id: ID!
}

type User implements Node {
  id: ID!
  name: String!
  role: Role!
  "Tasks owned by the user. Visible to the user and to admins."
  tasks(status: Status): [Task!]!
}

type Task implements Node {
  id: ID!
  title: String!
  status: Status!
  done: Boolean!
  createdAt: Time!
  owner: User!
  "Tasks this one refers to. A deleted task shows up as null."
  related: [Task]!
}

input CreateTaskInput {
  title: String!
  relatedIds: [ID!]
}

type Query {
  "The authenticated user."
  viewer: User
  user(id: ID!): User
  task(id: ID!): Task
  node(id: ID!): Node
  "The viewer's tasks, oldest first."
  tasks(status: Status, first: Int = 20): [Task!]!
}

type Mutation {
  createTask(input: CreateTaskInput!): Task!
  completeTask(id: ID!): Task!
  deleteTask(id: ID!): ID!
}
`

// Schema builds the executable schema from SDL.
func Schema() (*schema.Schema, error) {
	return schema.BuildFromSDL("tasks.graphql", SDL)
}
