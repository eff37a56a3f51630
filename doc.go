/*
Package main is an application package for the Vanir Agency Service. The
agency orchestrates cryptographic identity resources against a distributed
ledger: it registers wallet, agent, connection and credential type
configurations, synchronizes them to the ledger in the background, and runs
the credential issuance pipeline over synced connections.

You can use the agency and related Go packages roughly for three purposes:

1. As a long running service process which other in-process components talk
to through the typed request exchange. Registrations return immediately, and
the background sync engine materializes the resources on the ledger.

2. As a CLI tool for starting the service and probing the ledger server it
is configured against.

3. As a library: the agent sub-packages implement the resource
configurations, the ledger collaborator boundary and the sync engine, and
can be embedded into other services.

# Sub-packages

The repository is structured to the following sub-packages:

	agent/cfg       resource configurations and the error taxonomy
	agent/mesg      the typed request/response protocol
	agent/exchange  in-process actor routing with mailboxes
	agent/service   the service actor, sync engine and issuance pipeline
	agent/pool      the ledger collaborator boundary
	agent/indy      production ledger client on the indy SDK wrapper
	agent/mem       in-memory ledger client for tests and development
	agent/bootstrap genesis retrieval and DID registration
	agent/didauth   signed HTTP transport for agent identities
	cmds, cmd       the command layer
*/
package main
