package catalog

const mediaFields = `
	id
	title {
		romaji
		english
		native
	}
	description
	genres
	status
	averageScore
	coverImage {
		large
		medium
	}
	chapters`

const pageQuery = `
query ($page: Int, $perPage: Int, $sort: [MediaSort], $status: MediaStatus, $search: String) {
	Page(page: $page, perPage: $perPage) {
		pageInfo {
			currentPage
			hasNextPage
		}
		media(type: MANGA, sort: $sort, status: $status, search: $search) {` + mediaFields + `
		}
	}
}`

const listEntryFields = `
	lists {
		entries {
			progress
			media {` + mediaFields + `
			}
		}
	}`

const userListQuery = `
query ($userId: Int) {
	reading: MediaListCollection(userId: $userId, type: MANGA, status: CURRENT) {` + listEntryFields + `
	}
	completed: MediaListCollection(userId: $userId, type: MANGA, status: COMPLETED) {` + listEntryFields + `
	}
	planToRead: MediaListCollection(userId: $userId, type: MANGA, status: PLANNING) {` + listEntryFields + `
	}
	dropped: MediaListCollection(userId: $userId, type: MANGA, status: DROPPED) {` + listEntryFields + `
	}
	paused: MediaListCollection(userId: $userId, type: MANGA, status: PAUSED) {` + listEntryFields + `
	}
}`
