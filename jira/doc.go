/*
Package jira reads projects, issues and comments from the Jira REST API
(version 2). Client implements backup.Tracker.

Issues are named by keys such as TEST-1: the project key, a hyphen,
and the number of the issue within the project.
The numbers of issues TEST-1, TEST-2, and WEB-27 are 1, 2 and 27.

Jira paginates listings by offset rather than by page.
Page n of a listing of perPage records starts at offset (n-1)*perPage.

https://developer.atlassian.com/cloud/jira/platform/rest/v2/
*/
package jira
